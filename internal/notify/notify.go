package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/service-center/internal/db"
	"github.com/ukydev/service-center/internal/models"
	"github.com/ukydev/service-center/internal/realtime"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidRecipient is returned for a zero recipient id.
var ErrInvalidRecipient = errors.New("notification recipient is required")

// DefaultListLimit caps how many notifications a list call returns.
const DefaultListLimit = 50

// Params describes one notification before it is addressed.
type Params struct {
	Type      models.NotificationType
	Title     string
	Message   string
	RelatedTo *models.RelatedRef
	Severity  models.Severity
	Metadata  map[string]interface{}
}

// AdminDirectory resolves the current admin set.
type AdminDirectory interface {
	FindActiveUsersByRole(ctx context.Context, role models.Role) ([]models.User, error)
}

// Service persists notifications and pushes them to their addressees.
type Service struct {
	notifications db.NotificationCollection
	admins        AdminDirectory
	emitter       realtime.Emitter
	log           logrus.FieldLogger
	now           func() time.Time
}

// NewService creates a notification service.
func NewService(notifications db.NotificationCollection, admins AdminDirectory, emitter realtime.Emitter, log logrus.FieldLogger) *Service {
	return &Service{
		notifications: notifications,
		admins:        admins,
		emitter:       emitter,
		log:           log,
		now:           time.Now,
	}
}

// NotifyUser persists one unread notification addressed to userID.
func (s *Service) NotifyUser(ctx context.Context, userID primitive.ObjectID, p Params) (*models.Notification, error) {
	if userID.IsZero() {
		return nil, ErrInvalidRecipient
	}

	n := &models.Notification{
		Recipient: userID,
		Type:      p.Type,
		Title:     p.Title,
		Message:   p.Message,
		RelatedTo: p.RelatedTo,
		Severity:  p.Severity,
		Metadata:  p.Metadata,
		CreatedAt: s.now(),
	}
	if err := s.notifications.InsertNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}

// NotifyUserLive persists a notification and pushes it to the user's room
// as a systemNotification event. A failed push is logged, not returned.
func (s *Service) NotifyUserLive(ctx context.Context, userID primitive.ObjectID, p Params) (*models.Notification, error) {
	n, err := s.NotifyUser(ctx, userID, p)
	if err != nil {
		return nil, err
	}
	s.Push(ctx, userID, realtime.EventSystemNotification, n)
	return n, nil
}

// Push emits an event to a user's room, logging failures.
func (s *Service) Push(ctx context.Context, userID primitive.ObjectID, event string, payload interface{}) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.Emit(ctx, realtime.UserRoom(userID.Hex()), event, payload); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"user_id": userID.Hex(),
			"event":   event,
		}).Warn("live event not delivered")
	}
}

// NotifyAdmins sends one notification to every active admin, each through
// the admin's own room. Per-admin failures are logged and skipped; only a
// failure to resolve the admin set is returned.
func (s *Service) NotifyAdmins(ctx context.Context, p Params) ([]*models.Notification, error) {
	admins, err := s.admins.FindActiveUsersByRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("resolve admins: %w", err)
	}

	created := make([]*models.Notification, 0, len(admins))
	for _, admin := range admins {
		n, err := s.NotifyUserLive(ctx, admin.ID, p)
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"admin_id": admin.ID.Hex(),
				"type":     p.Type,
			}).Error("failed to notify admin")
			continue
		}
		created = append(created, n)
	}
	return created, nil
}

// List returns the caller's own notifications, newest first.
func (s *Service) List(ctx context.Context, userID primitive.ObjectID, unreadOnly bool, limit int64) ([]models.Notification, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	return s.notifications.FindNotificationsByRecipient(ctx, userID, unreadOnly, limit)
}

// MarkAsRead marks one of the caller's notifications read. Already read
// notifications are returned unchanged.
func (s *Service) MarkAsRead(ctx context.Context, id string, userID primitive.ObjectID) (*models.Notification, error) {
	return s.notifications.MarkNotificationRead(ctx, id, userID, s.now())
}

// MarkAllAsRead marks every unread notification of the caller read.
func (s *Service) MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.notifications.MarkAllNotificationsRead(ctx, userID, s.now())
}

// UnreadCount counts the caller's unread notifications.
func (s *Service) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.notifications.CountUnread(ctx, userID)
}
