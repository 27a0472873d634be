package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/service-center/internal/db"
	"github.com/ukydev/service-center/internal/mail"
	"github.com/ukydev/service-center/internal/models"
	"github.com/ukydev/service-center/internal/notify"
)

// Mailer queues an email for background delivery.
type Mailer interface {
	SendAsync(msg mail.Message)
}

// AppointmentHandler serves bookings.
type AppointmentHandler struct {
	appointments db.AppointmentCollection
	vehicles     db.VehicleCollection
	notifier     LiveNotifier
	mailer       Mailer
	log          logrus.FieldLogger
	now          func() time.Time
}

// NewAppointmentHandler creates an appointment handler. mailer may be nil.
func NewAppointmentHandler(appointments db.AppointmentCollection, vehicles db.VehicleCollection, notifier LiveNotifier, mailer Mailer, log logrus.FieldLogger) *AppointmentHandler {
	return &AppointmentHandler{
		appointments: appointments,
		vehicles:     vehicles,
		notifier:     notifier,
		mailer:       mailer,
		log:          log,
		now:          time.Now,
	}
}

// startOfDay is midnight of t's day in t's own location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Create books an appointment for the caller.
func (h *AppointmentHandler) Create(c *gin.Context) {
	_, userID, ok := caller(c)
	if !ok {
		return
	}

	var req models.AppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	if req.Date.Before(startOfDay(h.now())) {
		respondError(c, errBadRequest("Appointment date cannot be in the past"))
		return
	}

	vehicleID, err := optionalObjectID(req.VehicleID, "vehicleId")
	if err != nil {
		respondError(c, err)
		return
	}
	if vehicleID != nil {
		vehicle, err := h.vehicles.FindVehicleByID(c.Request.Context(), vehicleID.Hex())
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				respondError(c, errBadRequest("Vehicle not found"))
				return
			}
			respondError(c, err)
			return
		}
		if vehicle.Owner != userID {
			respondError(c, errForbidden("You can only book your own vehicles"))
			return
		}
	}

	appt := &models.Appointment{
		Customer:     userID,
		Vehicle:      vehicleID,
		ServiceType:  req.ServiceType,
		VehicleMake:  req.VehicleMake,
		VehicleModel: req.VehicleModel,
		VehicleYear:  req.VehicleYear,
		PlateNumber:  strings.ToUpper(strings.TrimSpace(req.PlateNumber)),
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Date:         req.Date,
		TimeSlot:     req.TimeSlot,
		Notes:        req.Notes,
		Status:       models.AppointmentPending,
	}
	if err := h.appointments.InsertAppointment(c.Request.Context(), appt); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, appt)
}

// Mine lists the caller's appointments.
func (h *AppointmentHandler) Mine(c *gin.Context) {
	_, userID, ok := caller(c)
	if !ok {
		return
	}

	appts, err := h.appointments.FindAppointmentsByCustomer(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, appts)
}

// List returns every appointment, optionally filtered by ?status=.
func (h *AppointmentHandler) List(c *gin.Context) {
	status := models.AppointmentStatus(c.Query("status"))
	if status != "" && !models.IsValidAppointmentStatus(status) {
		respondError(c, errBadRequest("Unknown appointment status"))
		return
	}

	appts, err := h.appointments.FindAppointments(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, appts)
}

// UpdateStatus changes the status of a booking and tells the customer.
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status models.AppointmentStatus `json:"status" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if !models.IsValidAppointmentStatus(req.Status) {
		respondError(c, errBadRequest("Unknown appointment status"))
		return
	}

	appt, err := h.appointments.FindAppointmentByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.transition(c, appt, req.Status)
}

// Cancel lets a customer cancel their own booking.
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	_, userID, ok := caller(c)
	if !ok {
		return
	}

	appt, err := h.appointments.FindAppointmentByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if appt.Customer != userID {
		respondError(c, errForbidden("You can only cancel your own appointments"))
		return
	}
	h.transition(c, appt, models.AppointmentCancelled)
}

func (h *AppointmentHandler) transition(c *gin.Context, appt *models.Appointment, to models.AppointmentStatus) {
	if appt.Status.IsTerminal() {
		respondError(c, errBadRequest(fmt.Sprintf("Appointment is already %s", appt.Status)))
		return
	}

	now := h.now()
	switch to {
	case models.AppointmentCancelled:
		appt.CancelledAt = &now
	case models.AppointmentCompleted:
		appt.CompletedAt = &now
	}
	appt.Status = to
	if err := h.appointments.UpdateAppointment(c.Request.Context(), appt); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	_, err := h.notifier.NotifyUserLive(ctx, appt.Customer, notify.Params{
		Type:      models.NotifStatusChange,
		Title:     "Appointment Status Updated",
		Message:   fmt.Sprintf("Your %s appointment on %s is now %s", appt.ServiceType, appt.Date.Format("02 Jan 2006"), to),
		RelatedTo: &models.RelatedRef{Kind: models.KindAppointment, ID: appt.ID},
	})
	if err != nil {
		h.log.WithError(err).WithField("appointment_id", appt.ID.Hex()).Warn("appointment status notification failed")
	}

	if to == models.AppointmentConfirmed && h.mailer != nil {
		msg, err := mail.AppointmentConfirmed(appt)
		if err != nil {
			h.log.WithError(err).WithField("appointment_id", appt.ID.Hex()).Error("render confirmation email")
		} else {
			h.mailer.SendAsync(msg)
		}
	}

	respondOK(c, http.StatusOK, appt)
}
