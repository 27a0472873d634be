package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgressStatus is the work-in-progress stage shown to customers.
type ProgressStatus string

const (
	ProgressPending        ProgressStatus = "Pending"
	ProgressInProgress     ProgressStatus = "In Progress"
	ProgressPartsOrdered   ProgressStatus = "Parts Ordered"
	ProgressUnderRepair    ProgressStatus = "Under Repair"
	ProgressQualityCheck   ProgressStatus = "Quality Check"
	ProgressReadyForPickup ProgressStatus = "Ready for Pickup"
	ProgressCompleted      ProgressStatus = "Completed"
)

// ProgressStatuses lists the stages in workshop order.
var ProgressStatuses = []ProgressStatus{
	ProgressPending,
	ProgressInProgress,
	ProgressPartsOrdered,
	ProgressUnderRepair,
	ProgressQualityCheck,
	ProgressReadyForPickup,
	ProgressCompleted,
}

const (
	MinProgress = 0
	MaxProgress = 100
)

// ProgressLog is the current state of one (service, vehicle, customer) thread.
// Status and Progress are set independently.
type ProgressLog struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Service   primitive.ObjectID `json:"service" bson:"service"`
	Vehicle   primitive.ObjectID `json:"vehicle" bson:"vehicle"`
	Customer  primitive.ObjectID `json:"customer" bson:"customer"`
	UpdatedBy primitive.ObjectID `json:"updatedBy" bson:"updatedBy"`
	Status    ProgressStatus     `json:"status" bson:"status"`
	Progress  int                `json:"progress" bson:"progress"` // percent, 0-100
	Notes     string             `json:"notes" bson:"notes"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ProgressEvent is an append-only record of one write to a ProgressLog.
type ProgressEvent struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ProgressLog primitive.ObjectID `json:"progressLog" bson:"progressLog"`
	Status      ProgressStatus     `json:"status" bson:"status"`
	Progress    int                `json:"progress" bson:"progress"`
	Notes       string             `json:"notes" bson:"notes"`
	UpdatedBy   primitive.ObjectID `json:"updatedBy" bson:"updatedBy"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}

// IsValidProgressStatus checks if a progress status is known
func IsValidProgressStatus(s ProgressStatus) bool {
	for _, known := range ProgressStatuses {
		if known == s {
			return true
		}
	}
	return false
}

// IsValidProgress checks the percentage bound.
func IsValidProgress(p int) bool {
	return p >= MinProgress && p <= MaxProgress
}
