// Package dbmock provides testify mocks for the db collection interfaces.
package dbmock

import (
	"context"

	"github.com/ecoverify/ecoverify-api/internal/models"
	"github.com/stretchr/testify/mock"
)

// AccountCollection is a mock implementation of db.AccountCollection
type AccountCollection struct {
	mock.Mock
}

func (m *AccountCollection) InsertAccount(ctx context.Context, account models.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *AccountCollection) FindAccountByID(ctx context.Context, id string) (*models.Account, error) {
	args := m.Called(ctx, id)
	return account(args.Get(0)), args.Error(1)
}

func (m *AccountCollection) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	args := m.Called(ctx, email)
	return account(args.Get(0)), args.Error(1)
}

func (m *AccountCollection) FindAccountByCompany(ctx context.Context, company string) (*models.Account, error) {
	args := m.Called(ctx, company)
	return account(args.Get(0)), args.Error(1)
}

func (m *AccountCollection) FindAccountByDeviceID(ctx context.Context, deviceID string) (*models.Account, error) {
	args := m.Called(ctx, deviceID)
	return account(args.Get(0)), args.Error(1)
}

func (m *AccountCollection) AddDevice(ctx context.Context, company string, device models.Device) error {
	args := m.Called(ctx, company, device)
	return args.Error(0)
}

func account(v interface{}) *models.Account {
	if v == nil {
		return nil
	}
	return v.(*models.Account)
}

// ReadingCollection is a mock implementation of db.ReadingCollection
type ReadingCollection struct {
	mock.Mock
}

func (m *ReadingCollection) InsertReadings(ctx context.Context, readings []models.Reading) (int, error) {
	args := m.Called(ctx, readings)
	return args.Int(0), args.Error(1)
}

func (m *ReadingCollection) InsertReading(ctx context.Context, reading models.Reading) (string, error) {
	args := m.Called(ctx, reading)
	return args.String(0), args.Error(1)
}

func (m *ReadingCollection) FindReadings(ctx context.Context, query models.ReadingQuery) ([]models.Reading, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reading), args.Error(1)
}
