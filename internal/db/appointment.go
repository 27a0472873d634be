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

// MongoAppointmentCollection implements AppointmentCollection for MongoDB
type MongoAppointmentCollection struct {
	Collection *mongo.Collection
}

// InsertAppointment inserts a booking into the collection.
func (c *MongoAppointmentCollection) InsertAppointment(ctx context.Context, appt *models.Appointment) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	if appt.ID.IsZero() {
		appt.ID = primitive.NewObjectID()
	}
	if appt.Status == "" {
		appt.Status = models.AppointmentPending
	}
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt

	_, err := c.Collection.InsertOne(ctx, appt)
	return translateError(err)
}

// FindAppointmentByID finds a booking by its ID.
func (c *MongoAppointmentCollection) FindAppointmentByID(ctx context.Context, id string) (*models.Appointment, error) {
	objectID, err := objectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var appt models.Appointment
	if err := findOne(ctx, c.Collection, bson.M{"_id": objectID}, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

// FindAppointmentsByCustomer lists the bookings of one customer, latest date first.
func (c *MongoAppointmentCollection) FindAppointmentsByCustomer(ctx context.Context, customer primitive.ObjectID) ([]models.Appointment, error) {
	appts := []models.Appointment{}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	if err := findAll(ctx, c.Collection, bson.M{"customer": customer}, &appts, opts); err != nil {
		return nil, err
	}
	return appts, nil
}

// FindAppointments lists bookings, optionally filtered by status, soonest first.
func (c *MongoAppointmentCollection) FindAppointments(ctx context.Context, status models.AppointmentStatus) ([]models.Appointment, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	appts := []models.Appointment{}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	if err := findAll(ctx, c.Collection, filter, &appts, opts); err != nil {
		return nil, err
	}
	return appts, nil
}

// UpdateAppointment replaces a booking by its ID.
func (c *MongoAppointmentCollection) UpdateAppointment(ctx context.Context, appt *models.Appointment) error {
	appt.UpdatedAt = time.Now()
	return replaceByID(ctx, c.Collection, appt.ID, appt)
}
