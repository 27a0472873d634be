package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/service-center/internal/db"
	"github.com/ukydev/service-center/internal/models"
	"github.com/ukydev/service-center/internal/notify"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LiveNotifier persists a notification and pushes it to the user's room.
type LiveNotifier interface {
	NotifyUserLive(ctx context.Context, userID primitive.ObjectID, p notify.Params) (*models.Notification, error)
}

// ServiceHandler serves the workshop job board.
type ServiceHandler struct {
	services     db.ServiceCollection
	appointments db.AppointmentCollection
	notifier     LiveNotifier
	log          logrus.FieldLogger
}

// NewServiceHandler creates a service handler.
func NewServiceHandler(services db.ServiceCollection, appointments db.AppointmentCollection, notifier LiveNotifier, log logrus.FieldLogger) *ServiceHandler {
	return &ServiceHandler{services: services, appointments: appointments, notifier: notifier, log: log}
}

// List returns services, optionally filtered by ?status=.
func (h *ServiceHandler) List(c *gin.Context) {
	status := models.ServiceStatus(c.Query("status"))
	if status != "" && !models.IsValidServiceStatus(status) {
		respondError(c, errBadRequest("Unknown service status"))
		return
	}

	services, err := h.services.FindServices(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, services)
}

// Get returns a single service.
func (h *ServiceHandler) Get(c *gin.Context) {
	service, err := h.services.FindServiceByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, service)
}

// Create opens a pending service.
func (h *ServiceHandler) Create(c *gin.Context) {
	var req models.ServiceRequest
	if !bindJSON(c, &req) {
		return
	}

	booking, err := optionalObjectID(req.BookingID, "bookingId")
	if err != nil {
		respondError(c, err)
		return
	}
	vehicle, err := optionalObjectID(req.VehicleID, "vehicleId")
	if err != nil {
		respondError(c, err)
		return
	}
	if booking != nil {
		if _, err := h.appointments.FindAppointmentByID(c.Request.Context(), booking.Hex()); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				respondError(c, errBadRequest("Booking not found"))
				return
			}
			respondError(c, err)
			return
		}
	}

	service := &models.Service{
		Name:           req.Name,
		Description:    req.Description,
		Booking:        booking,
		Vehicle:        vehicle,
		Status:         models.ServicePending,
		EstimatedHours: req.EstimatedHours,
		LaborCost:      req.LaborCost,
		PartsCost:      req.PartsCost,
	}
	if err := h.services.InsertService(c.Request.Context(), service); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, service)
}

// Claim assigns a pending service to the caller and starts it.
func (h *ServiceHandler) Claim(c *gin.Context) {
	_, userID, ok := caller(c)
	if !ok {
		return
	}

	service, err := h.services.FindServiceByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if service.Status != models.ServicePending || service.AssignedTo != nil {
		respondError(c, errConflict("Service has already been claimed"))
		return
	}

	now := time.Now()
	service.AssignedTo = &userID
	service.Status = models.ServiceOngoing
	service.StartedAt = &now
	if err := h.services.UpdateService(c.Request.Context(), service); err != nil {
		respondError(c, err)
		return
	}

	h.notifyBookingOwner(c.Request.Context(), service)
	respondOK(c, http.StatusOK, service)
}

// notifyBookingOwner tells the customer behind a service's booking that a
// mechanic picked it up. Failures are logged only.
func (h *ServiceHandler) notifyBookingOwner(ctx context.Context, service *models.Service) {
	if service.Booking == nil || h.notifier == nil {
		return
	}
	appt, err := h.appointments.FindAppointmentByID(ctx, service.Booking.Hex())
	if err != nil {
		h.log.WithError(err).WithField("service_id", service.ID.Hex()).Warn("booking lookup failed")
		return
	}
	_, err = h.notifier.NotifyUserLive(ctx, appt.Customer, notify.Params{
		Type:      models.NotifServiceAssigned,
		Title:     "Mechanic Assigned",
		Message:   fmt.Sprintf("A mechanic has started work on your %s", service.Name),
		RelatedTo: &models.RelatedRef{Kind: models.KindService, ID: service.ID},
	})
	if err != nil {
		h.log.WithError(err).WithField("service_id", service.ID.Hex()).Warn("service assignment notification failed")
	}
}

// UpdateStatus moves a service forward.
func (h *ServiceHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status models.ServiceStatus `json:"status" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if !models.IsValidServiceStatus(req.Status) {
		respondError(c, errBadRequest("Unknown service status"))
		return
	}

	service, err := h.services.FindServiceByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !service.Status.CanTransition(req.Status) {
		respondError(c, errBadRequest(fmt.Sprintf("Cannot move service from %s to %s", service.Status, req.Status)))
		return
	}

	now := time.Now()
	if service.StartedAt == nil {
		service.StartedAt = &now
	}
	if req.Status == models.ServiceCompleted {
		service.CompletedAt = &now
	}
	service.Status = req.Status
	if err := h.services.UpdateService(c.Request.Context(), service); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, service)
}
