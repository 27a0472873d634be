package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServiceStatus is the lifecycle state of a unit of work.
type ServiceStatus string

const (
	ServicePending   ServiceStatus = "pending"
	ServiceOngoing   ServiceStatus = "ongoing"
	ServiceCompleted ServiceStatus = "completed"
)

// Service represents a unit of work performed on a vehicle.
type Service struct {
	ID             primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Name           string              `json:"name" bson:"name"`
	Description    string              `json:"description,omitempty" bson:"description,omitempty"`
	Booking        *primitive.ObjectID `json:"booking,omitempty" bson:"booking,omitempty"`
	Vehicle        *primitive.ObjectID `json:"vehicle,omitempty" bson:"vehicle,omitempty"`
	AssignedTo     *primitive.ObjectID `json:"assignedTo,omitempty" bson:"assignedTo,omitempty"`
	Status         ServiceStatus       `json:"status" bson:"status"`
	EstimatedHours float64             `json:"estimatedHours,omitempty" bson:"estimatedHours,omitempty"`
	LaborCost      float64             `json:"laborCost,omitempty" bson:"laborCost,omitempty"` // in USD
	PartsCost      float64             `json:"partsCost,omitempty" bson:"partsCost,omitempty"` // in USD
	StartedAt      *time.Time          `json:"startedAt,omitempty" bson:"startedAt,omitempty"`
	CompletedAt    *time.Time          `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	CreatedAt      time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// ServiceRequest is the body accepted when creating a service.
type ServiceRequest struct {
	Name           string  `json:"name" binding:"required"`
	Description    string  `json:"description"`
	BookingID      string  `json:"bookingId"`
	VehicleID      string  `json:"vehicleId"`
	EstimatedHours float64 `json:"estimatedHours" binding:"gte=0"`
	LaborCost      float64 `json:"laborCost" binding:"gte=0"`
	PartsCost      float64 `json:"partsCost" binding:"gte=0"`
}

// IsValidServiceStatus checks if a service status is known
func IsValidServiceStatus(s ServiceStatus) bool {
	switch s {
	case ServicePending, ServiceOngoing, ServiceCompleted:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a service may move from one status to another.
// Services only move forward; completed is terminal.
func (s ServiceStatus) CanTransition(to ServiceStatus) bool {
	switch s {
	case ServicePending:
		return to == ServiceOngoing || to == ServiceCompleted
	case ServiceOngoing:
		return to == ServiceCompleted
	default:
		return false
	}
}
