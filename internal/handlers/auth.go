package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/service-center/internal/auth"
	"github.com/ukydev/service-center/internal/db"
	"github.com/ukydev/service-center/internal/models"
)

// FailedLoginRecorder is told about every failed credential check.
type FailedLoginRecorder interface {
	RecordFailedAttempt(ctx context.Context, source string) bool
}

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService    *auth.Service
	userCollection db.UserCollection
	risk           FailedLoginRecorder
	log            logrus.FieldLogger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, userCollection db.UserCollection, risk FailedLoginRecorder, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		userCollection: userCollection,
		risk:           risk,
		log:            log,
	}
}

func (h *AuthHandler) failedLogin(c *gin.Context) {
	if h.risk != nil {
		// The alert must not depend on the caller staying connected.
		h.risk.RecordFailedAttempt(context.WithoutCancel(c.Request.Context()), c.ClientIP())
	}
	respondError(c, errUnauthorized("Invalid credentials"))
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userCollection.FindUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.failedLogin(c)
			return
		}
		respondError(c, err)
		return
	}

	if !user.IsActive {
		respondError(c, errUnauthorized("Account is deactivated"))
		return
	}

	if !h.authService.CheckPassword(req.Password, user.PasswordHash) {
		h.failedLogin(c)
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		respondError(c, err)
		return
	}
	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.userCollection.UpdateLastLogin(c.Request.Context(), user.ID.Hex()); err != nil {
		h.log.WithError(err).WithField("user_id", user.ID.Hex()).Warn("failed to update last login")
	}

	respondOK(c, http.StatusOK, models.LoginResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User:         *user,
	})
}

// Register handles customer self-registration
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.ValidateName(req.Name); err != nil {
		respondError(c, errBadRequest(err.Error()))
		return
	}
	if err := h.authService.ValidateEmail(req.Email); err != nil {
		respondError(c, errBadRequest(err.Error()))
		return
	}
	if err := h.authService.ValidatePassword(req.Password); err != nil {
		respondError(c, errBadRequest(err.Error()))
		return
	}

	passwordHash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: passwordHash,
		Role:         models.RoleCustomer,
	}
	if err := h.userCollection.InsertUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			respondError(c, errConflict("Email already exists"))
			return
		}
		respondError(c, err)
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		respondError(c, err)
		return
	}
	refreshToken, err := h.authService.GenerateRefreshToken()
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, models.LoginResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User:         *user,
	})
}

// GetProfile returns the current user's profile
func (h *AuthHandler) GetProfile(c *gin.Context) {
	claims, _, ok := caller(c)
	if !ok {
		return
	}

	user, err := h.userCollection.FindUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"user":        user,
		"permissions": user.EffectivePermissions(),
	})
}

// UpdateProfile updates the current user's profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	claims, _, ok := caller(c)
	if !ok {
		return
	}

	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	}
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userCollection.FindUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	if req.Name != "" {
		if err := h.authService.ValidateName(req.Name); err != nil {
			respondError(c, errBadRequest(err.Error()))
			return
		}
		user.Name = strings.TrimSpace(req.Name)
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	if req.Email != "" {
		if err := h.authService.ValidateEmail(req.Email); err != nil {
			respondError(c, errBadRequest(err.Error()))
			return
		}
		existing, err := h.userCollection.FindUserByEmail(c.Request.Context(), req.Email)
		if err == nil && existing.ID != user.ID {
			respondError(c, errConflict("Email already exists"))
			return
		}
		user.Email = strings.ToLower(strings.TrimSpace(req.Email))
	}

	if err := h.userCollection.UpdateUser(c.Request.Context(), claims.UserID, *user); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, user)
}

// ChangePassword changes the current user's password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims, _, ok := caller(c)
	if !ok {
		return
	}

	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.ValidatePassword(req.NewPassword); err != nil {
		respondError(c, errBadRequest(err.Error()))
		return
	}

	user, err := h.userCollection.FindUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	if !h.authService.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		respondError(c, errUnauthorized("Current password is incorrect"))
		return
	}

	newPasswordHash, err := h.authService.HashPassword(req.NewPassword)
	if err != nil {
		respondError(c, err)
		return
	}

	user.PasswordHash = newPasswordHash
	if err := h.userCollection.UpdateUser(c.Request.Context(), claims.UserID, *user); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"message": "Password changed successfully"})
}
