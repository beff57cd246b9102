package db

import (
	"context"
	"time"

	"github.com/ecoverify/ecoverify-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoAccountCollection implements AccountCollection for MongoDB
type MongoAccountCollection struct {
	Collection *mongo.Collection
}

// InsertAccount inserts a new account. Duplicate email or company name
// yields ErrDuplicate.
func (c *MongoAccountCollection) InsertAccount(ctx context.Context, account models.Account) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	if account.Devices == nil {
		account.Devices = []models.Device{}
	}
	_, err := c.Collection.InsertOne(ctx, account)
	return translateError(err)
}

// FindAccountByID finds an account by its hex ID
func (c *MongoAccountCollection) FindAccountByID(ctx context.Context, id string) (*models.Account, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return c.findOne(ctx, bson.M{"_id": objectID})
}

// FindAccountByEmail finds an account by its email
func (c *MongoAccountCollection) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return c.findOne(ctx, bson.M{"email": email})
}

// FindAccountByCompany finds an account by its company name
func (c *MongoAccountCollection) FindAccountByCompany(ctx context.Context, company string) (*models.Account, error) {
	return c.findOne(ctx, bson.M{"companyName": company})
}

// FindAccountByDeviceID finds the account whose device directory contains deviceID.
func (c *MongoAccountCollection) FindAccountByDeviceID(ctx context.Context, deviceID string) (*models.Account, error) {
	return c.findOne(ctx, bson.M{"devices.deviceID": deviceID})
}

// AddDevice appends a device to a company's directory.
func (c *MongoAccountCollection) AddDevice(ctx context.Context, company string, device models.Device) error {
	if c.Collection == nil {
		return ErrNilCollection
	}
	result, err := c.Collection.UpdateOne(
		ctx,
		bson.M{"companyName": company, "devices.deviceID": bson.M{"$ne": device.DeviceID}},
		bson.M{"$push": bson.M{"devices": device}},
	)
	if err != nil {
		return translateError(err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *MongoAccountCollection) findOne(ctx context.Context, filter bson.M) (*models.Account, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}
	var account models.Account
	if err := c.Collection.FindOne(ctx, filter).Decode(&account); err != nil {
		return nil, translateError(err)
	}
	return &account, nil
}
