package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ukydev/service-center/internal/db"
	"github.com/ukydev/service-center/internal/models"
)

// UserHandler serves the admin user-management endpoints.
type UserHandler struct {
	users db.UserCollection
}

// NewUserHandler creates a user handler.
func NewUserHandler(users db.UserCollection) *UserHandler {
	return &UserHandler{users: users}
}

// List returns every user, optionally filtered by ?role=.
func (h *UserHandler) List(c *gin.Context) {
	role := models.Role(c.Query("role"))
	if role != "" && !models.IsValidRole(role) {
		respondError(c, errBadRequest("Unknown role"))
		return
	}

	users, err := h.users.FindUsers(c.Request.Context(), role)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, users)
}

// Get returns a single user.
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.FindUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

// notSelf refuses admin actions that would lock the caller out.
func notSelf(c *gin.Context, target string) bool {
	claims, _, ok := caller(c)
	if !ok {
		return false
	}
	if claims.UserID == target {
		respondError(c, errBadRequest("You cannot change your own role or status"))
		return false
	}
	return true
}

// SetRole changes a user's role.
func (h *UserHandler) SetRole(c *gin.Context) {
	var req struct {
		Role models.Role `json:"role" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if !models.IsValidRole(req.Role) {
		respondError(c, errBadRequest("Unknown role"))
		return
	}
	id := c.Param("id")
	if !notSelf(c, id) {
		return
	}

	if err := h.users.SetUserRole(c.Request.Context(), id, req.Role); err != nil {
		respondError(c, err)
		return
	}
	h.respondUser(c, id)
}

// SetStatus activates or deactivates a user.
func (h *UserHandler) SetStatus(c *gin.Context) {
	var req struct {
		IsActive *bool `json:"isActive" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	id := c.Param("id")
	if !notSelf(c, id) {
		return
	}

	if err := h.users.SetUserActive(c.Request.Context(), id, *req.IsActive); err != nil {
		respondError(c, err)
		return
	}
	h.respondUser(c, id)
}

// SetPermissions replaces a user's explicit permission grants.
func (h *UserHandler) SetPermissions(c *gin.Context) {
	var req struct {
		Permissions []models.Permission `json:"permissions"`
	}
	if !bindJSON(c, &req) {
		return
	}
	for _, p := range req.Permissions {
		if !models.IsValidPermission(p) {
			respondError(c, errBadRequest("Unknown permission: "+string(p)))
			return
		}
	}

	id := c.Param("id")
	if err := h.users.SetUserPermissions(c.Request.Context(), id, req.Permissions); err != nil {
		respondError(c, err)
		return
	}
	h.respondUser(c, id)
}

func (h *UserHandler) respondUser(c *gin.Context, id string) {
	user, err := h.users.FindUserByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, user)
}
