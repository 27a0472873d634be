package db

import (
	"context"
	"errors"
	"time"

	"github.com/ukydev/service-center/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
	ErrInvalidID = errors.New("invalid id")
)

// UserCollection defines the interface for user database operations
type UserCollection interface {
	InsertUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUsers(ctx context.Context, role models.Role) ([]models.User, error)
	FindActiveUsersByRole(ctx context.Context, role models.Role) ([]models.User, error)
	UpdateUser(ctx context.Context, id string, user models.User) error
	SetUserRole(ctx context.Context, id string, role models.Role) error
	SetUserActive(ctx context.Context, id string, active bool) error
	SetUserPermissions(ctx context.Context, id string, permissions []models.Permission) error
	UpdateLastLogin(ctx context.Context, id string) error
}

// VehicleCollection defines the interface for vehicle data operations.
type VehicleCollection interface {
	InsertVehicle(ctx context.Context, vehicle *models.Vehicle) error
	FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error)
	FindVehiclesByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Vehicle, error)
	FindAllVehicles(ctx context.Context) ([]models.Vehicle, error)
	UpdateVehicle(ctx context.Context, vehicle *models.Vehicle) error
	DeleteVehicle(ctx context.Context, id string) error
}

// ServiceCollection defines the interface for service job operations.
type ServiceCollection interface {
	InsertService(ctx context.Context, service *models.Service) error
	FindServiceByID(ctx context.Context, id string) (*models.Service, error)
	FindServices(ctx context.Context, status models.ServiceStatus) ([]models.Service, error)
	UpdateService(ctx context.Context, service *models.Service) error
}

// AppointmentCollection defines the interface for booking operations.
type AppointmentCollection interface {
	InsertAppointment(ctx context.Context, appt *models.Appointment) error
	FindAppointmentByID(ctx context.Context, id string) (*models.Appointment, error)
	FindAppointmentsByCustomer(ctx context.Context, customer primitive.ObjectID) ([]models.Appointment, error)
	FindAppointments(ctx context.Context, status models.AppointmentStatus) ([]models.Appointment, error)
	UpdateAppointment(ctx context.Context, appt *models.Appointment) error
}

// ProgressCollection defines the interface for progress log operations.
type ProgressCollection interface {
	InsertProgress(ctx context.Context, log *models.ProgressLog) error
	FindProgressByID(ctx context.Context, id string) (*models.ProgressLog, error)
	FindProgressByThread(ctx context.Context, service, vehicle, customer primitive.ObjectID) (*models.ProgressLog, error)
	FindProgressByCustomer(ctx context.Context, customer primitive.ObjectID) ([]models.ProgressLog, error)
	FindAllProgress(ctx context.Context) ([]models.ProgressLog, error)
	UpdateProgress(ctx context.Context, log *models.ProgressLog) error
}

// ProgressEventCollection stores the append-only progress history.
type ProgressEventCollection interface {
	InsertProgressEvent(ctx context.Context, event *models.ProgressEvent) error
	FindProgressEvents(ctx context.Context, progressLog primitive.ObjectID) ([]models.ProgressEvent, error)
}

// NotificationCollection defines the interface for notification operations.
type NotificationCollection interface {
	InsertNotification(ctx context.Context, n *models.Notification) error
	FindNotificationsByRecipient(ctx context.Context, recipient primitive.ObjectID, unreadOnly bool, limit int64) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string, recipient primitive.ObjectID, at time.Time) (*models.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, recipient primitive.ObjectID, at time.Time) (int64, error)
	CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error)
}

// ModificationCollection defines the interface for customization requests.
type ModificationCollection interface {
	InsertModification(ctx context.Context, m *models.Modification) error
	FindModificationByID(ctx context.Context, id string) (*models.Modification, error)
	FindModificationsByCustomer(ctx context.Context, customer primitive.ObjectID) ([]models.Modification, error)
	FindModifications(ctx context.Context, status models.ModificationStatus) ([]models.Modification, error)
	UpdateModification(ctx context.Context, m *models.Modification) error
}
