package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vehicle represents a customer vehicle registered with the service center.
type Vehicle struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Owner              primitive.ObjectID `bson:"owner" json:"owner"`
	RegistrationNumber string             `bson:"registrationNumber" json:"registrationNumber"` // unique plate value
	Make               string             `bson:"make" json:"make"`
	Model              string             `bson:"model" json:"model"`
	Year               int                `bson:"year" json:"year"`
	VIN                string             `bson:"vin,omitempty" json:"vin,omitempty"`
	Color              string             `bson:"color,omitempty" json:"color,omitempty"`
	Mileage            float64            `bson:"mileage,omitempty" json:"mileage,omitempty"` // in kilometers
	FuelType           string             `bson:"fuelType,omitempty" json:"fuelType,omitempty"` // "petrol", "diesel", "hybrid", "electric"
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// VehicleRequest is the body accepted when creating or editing a vehicle.
type VehicleRequest struct {
	OwnerID            string  `json:"ownerId"`
	RegistrationNumber string  `json:"registrationNumber" binding:"required"`
	Make               string  `json:"make" binding:"required"`
	Model              string  `json:"model" binding:"required"`
	Year               int     `json:"year" binding:"required,gte=1900,lte=2100"`
	VIN                string  `json:"vin"`
	Color              string  `json:"color"`
	Mileage            float64 `json:"mileage" binding:"gte=0"`
	FuelType           string  `json:"fuelType"`
}
