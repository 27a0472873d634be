package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ukydev/service-center/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoVehicleCollection implements VehicleCollection for MongoDB
type MongoVehicleCollection struct {
	Collection *mongo.Collection
}

// InsertVehicle inserts a vehicle record into the collection.
func (c *MongoVehicleCollection) InsertVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if vehicle.ID.IsZero() {
		vehicle.ID = primitive.NewObjectID()
	}
	vehicle.RegistrationNumber = normalizePlate(vehicle.RegistrationNumber)
	vehicle.CreatedAt = time.Now()
	vehicle.UpdatedAt = vehicle.CreatedAt

	_, err := c.Collection.InsertOne(ctx, vehicle)
	return translateError(err)
}

// FindVehicleByID finds a vehicle by its ID.
func (c *MongoVehicleCollection) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	objectID, err := objectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var vehicle models.Vehicle
	if err := findOne(ctx, c.Collection, bson.M{"_id": objectID}, &vehicle); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// FindVehiclesByOwner lists the vehicles of one owner.
func (c *MongoVehicleCollection) FindVehiclesByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Vehicle, error) {
	vehicles := []models.Vehicle{}
	if err := findAll(ctx, c.Collection, bson.M{"owner": owner}, &vehicles, newestFirst()); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// FindAllVehicles lists every vehicle.
func (c *MongoVehicleCollection) FindAllVehicles(ctx context.Context) ([]models.Vehicle, error) {
	vehicles := []models.Vehicle{}
	if err := findAll(ctx, c.Collection, bson.M{}, &vehicles, newestFirst()); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// UpdateVehicle replaces a vehicle by its ID.
func (c *MongoVehicleCollection) UpdateVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	vehicle.RegistrationNumber = normalizePlate(vehicle.RegistrationNumber)
	vehicle.UpdatedAt = time.Now()
	return replaceByID(ctx, c.Collection, vehicle.ID, vehicle)
}

// DeleteVehicle deletes a vehicle by its ID.
func (c *MongoVehicleCollection) DeleteVehicle(ctx context.Context, id string) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}

	objectID, err := objectIDFromHex(id)
	if err != nil {
		return err
	}

	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func normalizePlate(plate string) string {
	return strings.ToUpper(strings.Join(strings.Fields(plate), ""))
}
