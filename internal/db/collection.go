package db

import (
	"context"

	"github.com/ecoverify/ecoverify-api/internal/models"
)

// AccountCollection defines the interface for account and device directory operations.
type AccountCollection interface {
	InsertAccount(ctx context.Context, account models.Account) error
	FindAccountByID(ctx context.Context, id string) (*models.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	FindAccountByCompany(ctx context.Context, company string) (*models.Account, error)
	FindAccountByDeviceID(ctx context.Context, deviceID string) (*models.Account, error)
	AddDevice(ctx context.Context, company string, device models.Device) error
}

// ReadingCollection defines the interface for reading storage.
type ReadingCollection interface {
	InsertReadings(ctx context.Context, readings []models.Reading) (int, error)
	InsertReading(ctx context.Context, reading models.Reading) (string, error)
	FindReadings(ctx context.Context, query models.ReadingQuery) ([]models.Reading, error)
}
