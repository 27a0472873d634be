package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ModificationStatus is the review state of a customization request.
type ModificationStatus string

const (
	ModificationPending    ModificationStatus = "pending"
	ModificationApproved   ModificationStatus = "approved"
	ModificationConfirmed  ModificationStatus = "confirmed"
	ModificationRejected   ModificationStatus = "rejected"
	ModificationInProgress ModificationStatus = "in-progress"
	ModificationCompleted  ModificationStatus = "completed"
)

// Modification is a customer-submitted vehicle customization request.
type Modification struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Customer         primitive.ObjectID `json:"customer" bson:"customer"`
	CustomerName     string             `json:"customerName" bson:"customerName"`
	CustomerEmail    string             `json:"customerEmail" bson:"customerEmail"`
	CustomerPhone    string             `json:"customerPhone" bson:"customerPhone"`
	VehicleMake      string             `json:"vehicleMake" bson:"vehicleMake"`
	VehicleModel     string             `json:"vehicleModel" bson:"vehicleModel"`
	VehicleYear      int                `json:"vehicleYear,omitempty" bson:"vehicleYear,omitempty"`
	PlateNumber      string             `json:"plateNumber" bson:"plateNumber"`
	ModificationType string             `json:"modificationType" bson:"modificationType"` // "performance", "body", "interior", "audio", "lighting", "other"
	Description      string             `json:"description" bson:"description"`
	Budget           float64            `json:"budget,omitempty" bson:"budget,omitempty"` // in USD
	ImagePath        string             `json:"imagePath,omitempty" bson:"imagePath,omitempty"`
	Status           ModificationStatus `json:"status" bson:"status"`
	AdminNotes       string             `json:"adminNotes,omitempty" bson:"adminNotes,omitempty"`
	CreatedAt        time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ModificationRequest holds the multipart form fields of a new request.
type ModificationRequest struct {
	CustomerName     string  `form:"customerName" binding:"required"`
	CustomerEmail    string  `form:"customerEmail" binding:"required,email"`
	CustomerPhone    string  `form:"customerPhone" binding:"required"`
	VehicleMake      string  `form:"vehicleMake" binding:"required"`
	VehicleModel     string  `form:"vehicleModel" binding:"required"`
	VehicleYear      int     `form:"vehicleYear"`
	PlateNumber      string  `form:"plateNumber" binding:"required"`
	ModificationType string  `form:"modificationType" binding:"required"`
	Description      string  `form:"description" binding:"required"`
	Budget           float64 `form:"budget" binding:"gte=0"`
}

// IsValidModificationStatus checks if a modification status is known
func IsValidModificationStatus(s ModificationStatus) bool {
	switch s {
	case ModificationPending, ModificationApproved, ModificationConfirmed,
		ModificationRejected, ModificationInProgress, ModificationCompleted:
		return true
	default:
		return false
	}
}
