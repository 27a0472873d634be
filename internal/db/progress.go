package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/service-center/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoProgressCollection implements ProgressCollection for MongoDB
type MongoProgressCollection struct {
	Collection *mongo.Collection
}

// InsertProgress inserts a new progress thread.
func (c *MongoProgressCollection) InsertProgress(ctx context.Context, log *models.ProgressLog) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}
	now := time.Now()
	log.CreatedAt = now
	log.UpdatedAt = now

	_, err := c.Collection.InsertOne(ctx, log)
	return translateError(err)
}

// FindProgressByID finds a progress log by its ID.
func (c *MongoProgressCollection) FindProgressByID(ctx context.Context, id string) (*models.ProgressLog, error) {
	objectID, err := objectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var log models.ProgressLog
	if err := findOne(ctx, c.Collection, bson.M{"_id": objectID}, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

// FindProgressByThread finds the log of one (service, vehicle, customer) triple.
func (c *MongoProgressCollection) FindProgressByThread(ctx context.Context, service, vehicle, customer primitive.ObjectID) (*models.ProgressLog, error) {
	var log models.ProgressLog
	filter := bson.M{"service": service, "vehicle": vehicle, "customer": customer}
	if err := findOne(ctx, c.Collection, filter, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

// FindProgressByCustomer lists a customer's threads, most recently updated first.
func (c *MongoProgressCollection) FindProgressByCustomer(ctx context.Context, customer primitive.ObjectID) ([]models.ProgressLog, error) {
	logs := []models.ProgressLog{}
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	if err := findAll(ctx, c.Collection, bson.M{"customer": customer}, &logs, opts); err != nil {
		return nil, err
	}
	return logs, nil
}

// FindAllProgress lists every thread, most recently updated first.
func (c *MongoProgressCollection) FindAllProgress(ctx context.Context) ([]models.ProgressLog, error) {
	logs := []models.ProgressLog{}
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	if err := findAll(ctx, c.Collection, bson.M{}, &logs, opts); err != nil {
		return nil, err
	}
	return logs, nil
}

// UpdateProgress replaces a progress log by its ID. Last write wins.
func (c *MongoProgressCollection) UpdateProgress(ctx context.Context, log *models.ProgressLog) error {
	log.UpdatedAt = time.Now()
	return replaceByID(ctx, c.Collection, log.ID, log)
}

// MongoProgressEventCollection implements ProgressEventCollection for MongoDB
type MongoProgressEventCollection struct {
	Collection *mongo.Collection
}

// InsertProgressEvent appends one history entry.
func (c *MongoProgressEventCollection) InsertProgressEvent(ctx context.Context, event *models.ProgressEvent) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	_, err := c.Collection.InsertOne(ctx, event)
	return translateError(err)
}

// FindProgressEvents returns the history of a log, oldest first.
func (c *MongoProgressEventCollection) FindProgressEvents(ctx context.Context, progressLog primitive.ObjectID) ([]models.ProgressEvent, error) {
	events := []models.ProgressEvent{}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	if err := findAll(ctx, c.Collection, bson.M{"progressLog": progressLog}, &events, opts); err != nil {
		return nil, err
	}
	return events, nil
}
