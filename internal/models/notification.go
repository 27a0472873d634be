package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType tags what triggered a notification.
type NotificationType string

const (
	NotifProgressUpdate     NotificationType = "PROGRESS_UPDATE"
	NotifStatusChange       NotificationType = "STATUS_CHANGE"
	NotifModificationUpdate NotificationType = "MODIFICATION_UPDATE"
	NotifServiceAssigned    NotificationType = "SERVICE_ASSIGNED"
	NotifSystemRisk         NotificationType = "SYSTEM_RISK"
	NotifFailedLogin        NotificationType = "FAILED_LOGIN"
)

// Severity of a notification; empty means informational.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Kinds of entity a notification may point back to.
const (
	KindProgressLog  = "ProgressLog"
	KindAppointment  = "Appointment"
	KindModification = "Modification"
	KindService      = "Service"
	KindUser         = "User"
)

// RelatedRef is a weak typed back-reference to the entity that triggered a
// notification. It carries no ownership and is not checked for integrity.
type RelatedRef struct {
	Kind string             `json:"kind" bson:"kind"`
	ID   primitive.ObjectID `json:"id" bson:"id"`
}

// Notification is addressed to exactly one user.
type Notification struct {
	ID        primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	Recipient primitive.ObjectID     `json:"recipient" bson:"recipient"`
	Type      NotificationType       `json:"type" bson:"type"`
	Title     string                 `json:"title" bson:"title"`
	Message   string                 `json:"message" bson:"message"`
	RelatedTo *RelatedRef            `json:"relatedTo,omitempty" bson:"relatedTo,omitempty"`
	Read      bool                   `json:"read" bson:"read"`
	ReadAt    *time.Time             `json:"readAt,omitempty" bson:"readAt,omitempty"`
	Severity  Severity               `json:"severity,omitempty" bson:"severity,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt time.Time              `json:"createdAt" bson:"createdAt"`
}
