package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/service-center/internal/db"
	"github.com/ukydev/service-center/internal/models"
	"github.com/ukydev/service-center/internal/notify"
	"github.com/ukydev/service-center/internal/storage"
)

// ModificationHandler serves vehicle customization requests.
type ModificationHandler struct {
	modifications db.ModificationCollection
	files         storage.FileStore
	notifier      LiveNotifier
	maxUpload     int64
	log           logrus.FieldLogger
}

// NewModificationHandler creates a modification handler.
func NewModificationHandler(modifications db.ModificationCollection, files storage.FileStore, notifier LiveNotifier, maxUpload int64, log logrus.FieldLogger) *ModificationHandler {
	return &ModificationHandler{
		modifications: modifications,
		files:         files,
		notifier:      notifier,
		maxUpload:     maxUpload,
		log:           log,
	}
}

// Create accepts a multipart request with an optional "image" file.
func (h *ModificationHandler) Create(c *gin.Context) {
	_, userID, ok := caller(c)
	if !ok {
		return
	}

	var req models.ModificationRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, errBadRequest("Invalid request body: "+err.Error()))
		return
	}

	imagePath := ""
	header, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		respondError(c, errBadRequest("Invalid image upload"))
		return
	default:
		imagePath, err = h.saveImage(c, header)
		if err != nil {
			respondError(c, err)
			return
		}
	}

	mod := &models.Modification{
		Customer:         userID,
		CustomerName:     req.CustomerName,
		CustomerEmail:    req.CustomerEmail,
		CustomerPhone:    req.CustomerPhone,
		VehicleMake:      req.VehicleMake,
		VehicleModel:     req.VehicleModel,
		VehicleYear:      req.VehicleYear,
		PlateNumber:      strings.ToUpper(strings.TrimSpace(req.PlateNumber)),
		ModificationType: req.ModificationType,
		Description:      req.Description,
		Budget:           req.Budget,
		ImagePath:        imagePath,
		Status:           models.ModificationPending,
	}
	if err := h.modifications.InsertModification(c.Request.Context(), mod); err != nil {
		if imagePath != "" {
			if rmErr := h.files.Remove(c.Request.Context(), imagePath); rmErr != nil {
				h.log.WithError(rmErr).WithField("path", imagePath).Warn("remove orphaned upload")
			}
		}
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, mod)
}

func (h *ModificationHandler) saveImage(c *gin.Context, header *multipart.FileHeader) (string, error) {
	if h.maxUpload > 0 && header.Size > h.maxUpload {
		return "", errBadRequest(fmt.Sprintf("Image must be at most %d bytes", h.maxUpload))
	}

	file, err := header.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	// The declared type and file name are client input; trust the bytes.
	contentType, body, err := storage.SniffImage(file)
	if errors.Is(err, storage.ErrUnsupportedType) {
		return "", errBadRequest("Only JPEG, PNG, GIF or WebP images are allowed")
	}
	if err != nil {
		return "", err
	}
	return h.files.Save(c.Request.Context(), contentType, header.Size, body)
}

// Mine lists the caller's requests.
func (h *ModificationHandler) Mine(c *gin.Context) {
	_, userID, ok := caller(c)
	if !ok {
		return
	}

	mods, err := h.modifications.FindModificationsByCustomer(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, mods)
}

// List returns every request, optionally filtered by ?status=.
func (h *ModificationHandler) List(c *gin.Context) {
	status := models.ModificationStatus(c.Query("status"))
	if status != "" && !models.IsValidModificationStatus(status) {
		respondError(c, errBadRequest("Unknown modification status"))
		return
	}

	mods, err := h.modifications.FindModifications(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, mods)
}

// UpdateStatus records a review decision and tells the customer.
func (h *ModificationHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status     models.ModificationStatus `json:"status" binding:"required"`
		AdminNotes *string                   `json:"adminNotes"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if !models.IsValidModificationStatus(req.Status) {
		respondError(c, errBadRequest("Unknown modification status"))
		return
	}

	mod, err := h.modifications.FindModificationByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	mod.Status = req.Status
	if req.AdminNotes != nil {
		mod.AdminNotes = *req.AdminNotes
	}
	if err := h.modifications.UpdateModification(c.Request.Context(), mod); err != nil {
		respondError(c, err)
		return
	}

	_, err = h.notifier.NotifyUserLive(c.Request.Context(), mod.Customer, notify.Params{
		Type:      models.NotifModificationUpdate,
		Title:     "Modification Request Updated",
		Message:   fmt.Sprintf("Your %s modification request is now %s", mod.ModificationType, mod.Status),
		RelatedTo: &models.RelatedRef{Kind: models.KindModification, ID: mod.ID},
	})
	if err != nil {
		h.log.WithError(err).WithField("modification_id", mod.ID.Hex()).Warn("modification notification failed")
	}

	respondOK(c, http.StatusOK, mod)
}
