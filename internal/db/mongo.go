package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	AccountsCollection = "Users"
	ReadingsCollection = "Recording"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicate     = errors.New("duplicate record")
	ErrNilCollection = errors.New("mongo collection is nil")

	// ErrDuplicateCompany is a duplicate on the companyName index. It matches ErrDuplicate.
	ErrDuplicateCompany = fmt.Errorf("%w: companyName", ErrDuplicate)
)

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the indexes the gateway relies on. Creating an
// index that already exists is a no-op.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	accounts := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "companyName", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "devices.deviceID", Value: 1}}},
	}
	if _, err := database.Collection(AccountsCollection).Indexes().CreateMany(ctx, accounts); err != nil {
		return fmt.Errorf("account indexes: %w", err)
	}

	readings := []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "metadata.company", Value: 1},
			{Key: "metadata.uuid", Value: 1},
			{Key: "timestamp", Value: -1},
		}},
	}
	if _, err := database.Collection(ReadingsCollection).Indexes().CreateMany(ctx, readings); err != nil {
		return fmt.Errorf("reading indexes: %w", err)
	}
	return nil
}

// translateError maps driver errors onto the package sentinels.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err) && strings.Contains(err.Error(), "companyName"):
		return fmt.Errorf("%w: %v", ErrDuplicateCompany, err)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}
