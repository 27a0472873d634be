package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ukydev/service-center/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoModificationCollection implements ModificationCollection for MongoDB
type MongoModificationCollection struct {
	Collection *mongo.Collection
}

// InsertModification inserts a customization request.
func (c *MongoModificationCollection) InsertModification(ctx context.Context, m *models.Modification) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if m.Status == "" {
		m.Status = models.ModificationPending
	}
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt

	_, err := c.Collection.InsertOne(ctx, m)
	return translateError(err)
}

// FindModificationByID finds a request by its ID.
func (c *MongoModificationCollection) FindModificationByID(ctx context.Context, id string) (*models.Modification, error) {
	objectID, err := objectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var m models.Modification
	if err := findOne(ctx, c.Collection, bson.M{"_id": objectID}, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// FindModificationsByCustomer lists the requests of one customer.
func (c *MongoModificationCollection) FindModificationsByCustomer(ctx context.Context, customer primitive.ObjectID) ([]models.Modification, error) {
	mods := []models.Modification{}
	if err := findAll(ctx, c.Collection, bson.M{"customer": customer}, &mods, newestFirst()); err != nil {
		return nil, err
	}
	return mods, nil
}

// FindModifications lists requests, optionally filtered by status.
func (c *MongoModificationCollection) FindModifications(ctx context.Context, status models.ModificationStatus) ([]models.Modification, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	mods := []models.Modification{}
	if err := findAll(ctx, c.Collection, filter, &mods, newestFirst()); err != nil {
		return nil, err
	}
	return mods, nil
}

// UpdateModification replaces a request by its ID.
func (c *MongoModificationCollection) UpdateModification(ctx context.Context, m *models.Modification) error {
	m.UpdatedAt = time.Now()
	return replaceByID(ctx, c.Collection, m.ID, m)
}
