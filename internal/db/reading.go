package db

import (
	"context"
	"fmt"

	"github.com/ecoverify/ecoverify-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoReadingCollection implements ReadingCollection for MongoDB
type MongoReadingCollection struct {
	Collection *mongo.Collection
}

// InsertReadings writes a batch with a single InsertMany and returns the
// number of documents written.
func (c *MongoReadingCollection) InsertReadings(ctx context.Context, readings []models.Reading) (int, error) {
	if c.Collection == nil {
		return 0, ErrNilCollection
	}
	if len(readings) == 0 {
		return 0, nil
	}
	docs := make([]interface{}, len(readings))
	for i, r := range readings {
		docs[i] = r
	}
	result, err := c.Collection.InsertMany(ctx, docs)
	if err != nil {
		return 0, translateError(err)
	}
	return len(result.InsertedIDs), nil
}

// InsertReading writes one reading and returns its storage ID.
func (c *MongoReadingCollection) InsertReading(ctx context.Context, reading models.Reading) (string, error) {
	if c.Collection == nil {
		return "", ErrNilCollection
	}
	result, err := c.Collection.InsertOne(ctx, reading)
	if err != nil {
		return "", translateError(err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		return id.Hex(), nil
	}
	return fmt.Sprint(result.InsertedID), nil
}

// FindReadings returns the newest readings in scope, newest first.
func (c *MongoReadingCollection) FindReadings(ctx context.Context, query models.ReadingQuery) ([]models.Reading, error) {
	if c.Collection == nil {
		return nil, ErrNilCollection
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if query.Limit > 0 {
		opts.SetLimit(query.Limit)
	}
	cursor, err := c.Collection.Find(ctx, ReadingFilter(query), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	readings := []models.Reading{}
	if err := cursor.All(ctx, &readings); err != nil {
		return nil, err
	}
	return readings, nil
}

// ReadingFilter builds the Mongo filter for a query scope.
func ReadingFilter(query models.ReadingQuery) bson.M {
	filter := bson.M{"metadata.company": query.Company}
	if query.DeviceID != "" {
		filter["metadata.uuid"] = query.DeviceID
	}
	return filter
}
