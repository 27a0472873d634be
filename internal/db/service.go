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

// MongoServiceCollection implements ServiceCollection for MongoDB
type MongoServiceCollection struct {
	Collection *mongo.Collection
}

// InsertService inserts a service record into the collection.
func (c *MongoServiceCollection) InsertService(ctx context.Context, service *models.Service) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if service.ID.IsZero() {
		service.ID = primitive.NewObjectID()
	}
	if service.Status == "" {
		service.Status = models.ServicePending
	}
	service.CreatedAt = time.Now()
	service.UpdatedAt = service.CreatedAt

	_, err := c.Collection.InsertOne(ctx, service)
	return translateError(err)
}

// FindServiceByID finds a service by its ID.
func (c *MongoServiceCollection) FindServiceByID(ctx context.Context, id string) (*models.Service, error) {
	objectID, err := objectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var service models.Service
	if err := findOne(ctx, c.Collection, bson.M{"_id": objectID}, &service); err != nil {
		return nil, err
	}
	return &service, nil
}

// FindServices lists services, optionally filtered by status.
func (c *MongoServiceCollection) FindServices(ctx context.Context, status models.ServiceStatus) ([]models.Service, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	services := []models.Service{}
	if err := findAll(ctx, c.Collection, filter, &services, newestFirst()); err != nil {
		return nil, err
	}
	return services, nil
}

// UpdateService replaces a service by its ID.
func (c *MongoServiceCollection) UpdateService(ctx context.Context, service *models.Service) error {
	service.UpdatedAt = time.Now()
	return replaceByID(ctx, c.Collection, service.ID, service)
}
