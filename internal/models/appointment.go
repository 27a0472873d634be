package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AppointmentStatus is the state of a booking.
type AppointmentStatus string

const (
	AppointmentPending    AppointmentStatus = "pending"
	AppointmentConfirmed  AppointmentStatus = "confirmed"
	AppointmentInProgress AppointmentStatus = "in-progress"
	AppointmentCompleted  AppointmentStatus = "completed"
	AppointmentCancelled  AppointmentStatus = "cancelled"
)

// Appointment represents a customer booking for a vehicle/service combination.
type Appointment struct {
	ID           primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Customer     primitive.ObjectID  `json:"customer" bson:"customer"`
	Vehicle      *primitive.ObjectID `json:"vehicle,omitempty" bson:"vehicle,omitempty"`
	ServiceType  string              `json:"serviceType" bson:"serviceType"`
	VehicleMake  string              `json:"vehicleMake" bson:"vehicleMake"`
	VehicleModel string              `json:"vehicleModel" bson:"vehicleModel"`
	VehicleYear  int                 `json:"vehicleYear,omitempty" bson:"vehicleYear,omitempty"`
	PlateNumber  string              `json:"plateNumber" bson:"plateNumber"`
	ContactName  string              `json:"contactName" bson:"contactName"`
	ContactEmail string              `json:"contactEmail" bson:"contactEmail"`
	ContactPhone string              `json:"contactPhone" bson:"contactPhone"`
	Date         time.Time           `json:"date" bson:"date"`
	TimeSlot     string              `json:"timeSlot" bson:"timeSlot"`
	Notes        string              `json:"notes,omitempty" bson:"notes,omitempty"`
	Status       AppointmentStatus   `json:"status" bson:"status"`
	CancelledAt  *time.Time          `json:"cancelledAt,omitempty" bson:"cancelledAt,omitempty"`
	CompletedAt  *time.Time          `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	CreatedAt    time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// AppointmentRequest is the body accepted when a customer books.
type AppointmentRequest struct {
	VehicleID    string    `json:"vehicleId"`
	ServiceType  string    `json:"serviceType" binding:"required"`
	VehicleMake  string    `json:"vehicleMake" binding:"required"`
	VehicleModel string    `json:"vehicleModel" binding:"required"`
	VehicleYear  int       `json:"vehicleYear"`
	PlateNumber  string    `json:"plateNumber" binding:"required"`
	ContactName  string    `json:"contactName" binding:"required"`
	ContactEmail string    `json:"contactEmail" binding:"required,email"`
	ContactPhone string    `json:"contactPhone" binding:"required"`
	Date         time.Time `json:"date" binding:"required"`
	TimeSlot     string    `json:"timeSlot" binding:"required"`
	Notes        string    `json:"notes"`
}

// IsValidAppointmentStatus checks if an appointment status is known
func IsValidAppointmentStatus(s AppointmentStatus) bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentInProgress, AppointmentCompleted, AppointmentCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further status changes are allowed.
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentCompleted || s == AppointmentCancelled
}
