package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/service-center/internal/db"
	"github.com/ukydev/service-center/internal/models"
	"github.com/ukydev/service-center/internal/notify"
	"github.com/ukydev/service-center/internal/realtime"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidInput wraps every validation failure.
var ErrInvalidInput = errors.New("invalid progress input")

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Notifier persists a notification for one user and pushes live events.
type Notifier interface {
	NotifyUser(ctx context.Context, userID primitive.ObjectID, p notify.Params) (*models.Notification, error)
	Push(ctx context.Context, userID primitive.ObjectID, event string, payload interface{})
}

// CreateInput is a create-or-update request for a progress thread.
type CreateInput struct {
	ServiceID  string                 `json:"serviceId"`
	VehicleID  string                 `json:"vehicleId"`
	CustomerID string                 `json:"customerId"`
	Status     *models.ProgressStatus `json:"status"`
	Progress   *int                   `json:"progress"`
	Notes      *string                `json:"notes"`
}

// UpdateInput carries the fields to overwrite; nil fields keep their value.
type UpdateInput struct {
	Status   *models.ProgressStatus `json:"status"`
	Progress *int                   `json:"progress"`
	Notes    *string                `json:"notes"`
}

func (in UpdateInput) validate() error {
	if in.Status != nil && !models.IsValidProgressStatus(*in.Status) {
		return invalid("unknown status %q", *in.Status)
	}
	if in.Progress != nil && !models.IsValidProgress(*in.Progress) {
		return invalid("progress must be between %d and %d", models.MinProgress, models.MaxProgress)
	}
	return nil
}

func (in UpdateInput) apply(log *models.ProgressLog) {
	if in.Status != nil {
		log.Status = *in.Status
	}
	if in.Progress != nil {
		log.Progress = *in.Progress
	}
	if in.Notes != nil {
		log.Notes = *in.Notes
	}
}

// Result is what a successful write produced. Notification is nil when the
// notification could not be persisted.
type Result struct {
	ProgressLog  *models.ProgressLog  `json:"progressLog"`
	Notification *models.Notification `json:"notification,omitempty"`
	Created      bool                 `json:"-"`
}

// Service owns progress threads and their side effects.
type Service struct {
	logs     db.ProgressCollection
	events   db.ProgressEventCollection
	notifier Notifier
	log      logrus.FieldLogger
}

// NewService creates a progress service.
func NewService(logs db.ProgressCollection, events db.ProgressEventCollection, notifier Notifier, log logrus.FieldLogger) *Service {
	return &Service{logs: logs, events: events, notifier: notifier, log: log}
}

func parseRequiredID(name, value string) (primitive.ObjectID, error) {
	if strings.TrimSpace(value) == "" {
		return primitive.NilObjectID, invalid("%s is required", name)
	}
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		return primitive.NilObjectID, invalid("%s is not a valid id", name)
	}
	return id, nil
}

// CreateOrUpdate creates the thread for (service, vehicle, customer) or, if
// it already exists, applies the supplied fields to it.
func (s *Service) CreateOrUpdate(ctx context.Context, in CreateInput, updatedBy primitive.ObjectID) (*Result, error) {
	serviceID, err := parseRequiredID("serviceId", in.ServiceID)
	if err != nil {
		return nil, err
	}
	vehicleID, err := parseRequiredID("vehicleId", in.VehicleID)
	if err != nil {
		return nil, err
	}
	customerID, err := parseRequiredID("customerId", in.CustomerID)
	if err != nil {
		return nil, err
	}
	fields := UpdateInput{Status: in.Status, Progress: in.Progress, Notes: in.Notes}
	if err := fields.validate(); err != nil {
		return nil, err
	}

	existing, err := s.logs.FindProgressByThread(ctx, serviceID, vehicleID, customerID)
	switch {
	case err == nil:
		return s.write(ctx, existing, fields, updatedBy, false)
	case !errors.Is(err, db.ErrNotFound):
		return nil, fmt.Errorf("find progress thread: %w", err)
	}

	log := &models.ProgressLog{
		Service:  serviceID,
		Vehicle:  vehicleID,
		Customer: customerID,
		Status:   models.ProgressPending,
		Progress: models.MinProgress,
	}
	res, err := s.write(ctx, log, fields, updatedBy, true)
	if !errors.Is(err, db.ErrDuplicate) {
		return res, err
	}

	// A concurrent request created the thread first; update that one.
	existing, err = s.logs.FindProgressByThread(ctx, serviceID, vehicleID, customerID)
	if err != nil {
		return nil, fmt.Errorf("find progress thread: %w", err)
	}
	return s.write(ctx, existing, fields, updatedBy, false)
}

// Update applies the supplied fields to an existing thread.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput, updatedBy primitive.ObjectID) (*Result, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	log, err := s.logs.FindProgressByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.write(ctx, log, in, updatedBy, false)
}

// write persists the log, then appends history, then notifies the customer.
// Only the persist step can fail the call.
func (s *Service) write(ctx context.Context, log *models.ProgressLog, in UpdateInput, updatedBy primitive.ObjectID, create bool) (*Result, error) {
	in.apply(log)
	log.UpdatedBy = updatedBy

	if create {
		if err := s.logs.InsertProgress(ctx, log); err != nil {
			return nil, fmt.Errorf("insert progress: %w", err)
		}
	} else {
		if err := s.logs.UpdateProgress(ctx, log); err != nil {
			return nil, fmt.Errorf("update progress: %w", err)
		}
	}

	entry := s.log.WithFields(logrus.Fields{
		"progress_log": log.ID.Hex(),
		"customer_id":  log.Customer.Hex(),
	})

	event := &models.ProgressEvent{
		ProgressLog: log.ID,
		Status:      log.Status,
		Progress:    log.Progress,
		Notes:       log.Notes,
		UpdatedBy:   updatedBy,
		CreatedAt:   log.UpdatedAt,
	}
	if err := s.events.InsertProgressEvent(ctx, event); err != nil {
		entry.WithError(err).Error("failed to append progress history")
	}

	result := &Result{ProgressLog: log, Created: create}

	n, err := s.notifier.NotifyUser(ctx, log.Customer, notify.Params{
		Type:      models.NotifProgressUpdate,
		Title:     "Service Progress Update",
		Message:   Message(log),
		RelatedTo: &models.RelatedRef{Kind: models.KindProgressLog, ID: log.ID},
	})
	if err != nil {
		entry.WithError(err).Error("failed to notify customer of progress")
		return result, nil
	}
	result.Notification = n

	s.notifier.Push(ctx, log.Customer, realtime.EventProgressUpdate, realtime.ProgressUpdatePayload{
		ProgressLog:  log,
		Notification: n,
	})
	return result, nil
}

// Message is the customer-facing text of a progress notification.
func Message(log *models.ProgressLog) string {
	return fmt.Sprintf("Service progress updated: %s (%d%% complete)", log.Status, log.Progress)
}

// ForCustomer lists a customer's own threads, most recent first.
func (s *Service) ForCustomer(ctx context.Context, customer primitive.ObjectID) ([]models.ProgressLog, error) {
	return s.logs.FindProgressByCustomer(ctx, customer)
}

// All lists every thread. Staff see all customers.
func (s *Service) All(ctx context.Context) ([]models.ProgressLog, error) {
	return s.logs.FindAllProgress(ctx)
}

// Get loads one thread.
func (s *Service) Get(ctx context.Context, id string) (*models.ProgressLog, error) {
	return s.logs.FindProgressByID(ctx, id)
}

// History returns the append-only write history of a thread, oldest first.
func (s *Service) History(ctx context.Context, log *models.ProgressLog) ([]models.ProgressEvent, error) {
	return s.events.FindProgressEvents(ctx, log.ID)
}

