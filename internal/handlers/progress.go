package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ukydev/service-center/internal/models"
	"github.com/ukydev/service-center/internal/progress"
)

// ProgressHandler serves workshop progress threads.
type ProgressHandler struct {
	progress *progress.Service
}

// NewProgressHandler creates a progress handler.
func NewProgressHandler(svc *progress.Service) *ProgressHandler {
	return &ProgressHandler{progress: svc}
}

// CreateOrUpdate writes the (service, vehicle, customer) thread, creating it
// on first use.
func (h *ProgressHandler) CreateOrUpdate(c *gin.Context) {
	_, userID, ok := caller(c)
	if !ok {
		return
	}

	var in progress.CreateInput
	if !bindJSON(c, &in) {
		return
	}

	result, err := h.progress.CreateOrUpdate(c.Request.Context(), in, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	respondOK(c, status, result.ProgressLog)
}

// Update overwrites fields of an existing thread.
func (h *ProgressHandler) Update(c *gin.Context) {
	_, userID, ok := caller(c)
	if !ok {
		return
	}

	var in progress.UpdateInput
	if !bindJSON(c, &in) {
		return
	}

	result, err := h.progress.Update(c.Request.Context(), c.Param("id"), in, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, result.ProgressLog)
}

// Customer lists the caller's threads, most recently updated first.
func (h *ProgressHandler) Customer(c *gin.Context) {
	_, userID, ok := caller(c)
	if !ok {
		return
	}

	logs, err := h.progress.ForCustomer(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, logs)
}

// Employee lists every thread.
func (h *ProgressHandler) Employee(c *gin.Context) {
	logs, err := h.progress.All(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, logs)
}

// History returns the write history of a thread, oldest first.
func (h *ProgressHandler) History(c *gin.Context) {
	claims, userID, ok := caller(c)
	if !ok {
		return
	}

	log, err := h.progress.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if log.Customer != userID && !models.IsStaff(claims.Role) {
		respondError(c, errForbidden("You do not have access to this progress log"))
		return
	}

	events, err := h.progress.History(c.Request.Context(), log)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"progressLog": log, "events": events})
}
