package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/service-center/internal/auth"
	"github.com/ukydev/service-center/internal/db"
	"github.com/ukydev/service-center/internal/middleware"
	"github.com/ukydev/service-center/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockUserCollection is a mock implementation of UserCollection
type MockUserCollection struct {
	mock.Mock
}

func (m *MockUserCollection) InsertUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUsers(ctx context.Context, role models.Role) ([]models.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserCollection) FindActiveUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserCollection) UpdateUser(ctx context.Context, id string, user models.User) error {
	args := m.Called(ctx, id, user)
	return args.Error(0)
}

func (m *MockUserCollection) SetUserRole(ctx context.Context, id string, role models.Role) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

func (m *MockUserCollection) SetUserActive(ctx context.Context, id string, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *MockUserCollection) SetUserPermissions(ctx context.Context, id string, permissions []models.Permission) error {
	args := m.Called(ctx, id, permissions)
	return args.Error(0)
}

func (m *MockUserCollection) UpdateLastLogin(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ db.UserCollection = (*MockUserCollection)(nil)

// MockRisk records failed login reports.
type MockRisk struct {
	mock.Mock
}

func (m *MockRisk) RecordFailedAttempt(ctx context.Context, source string) bool {
	args := m.Called(ctx, source)
	return args.Bool(0)
}

type envelope struct {
	Success bool                  `json:"success"`
	Data    json.RawMessage       `json:"data"`
	Error   *middleware.ErrorBody `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// asUser injects claims the way the auth middleware would.
func asUser(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetUser(c, &models.Claims{UserID: user.ID.Hex(), Email: user.Email, Role: user.Role})
		c.Next()
	}
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_Login(t *testing.T) {
	authService := auth.NewService("test-secret", time.Hour)
	passwordHash, err := authService.HashPassword("password123")
	require.NoError(t, err)

	newHandler := func() (*gin.Engine, *MockUserCollection, *MockRisk) {
		users := new(MockUserCollection)
		risk := new(MockRisk)
		h := NewAuthHandler(authService, users, risk, quietLogger())
		r := gin.New()
		r.POST("/api/auth/login", h.Login)
		return r, users, risk
	}

	t.Run("successful login", func(t *testing.T) {
		r, users, risk := newHandler()
		user := &models.User{
			ID:           primitive.NewObjectID(),
			Name:         "Test User",
			Email:        "test@example.com",
			PasswordHash: passwordHash,
			Role:         models.RoleAdmin,
			IsActive:     true,
		}
		users.On("FindUserByEmail", mock.Anything, "test@example.com").Return(user, nil)
		users.On("UpdateLastLogin", mock.Anything, user.ID.Hex()).Return(nil)

		w := doJSON(r, http.MethodPost, "/api/auth/login", models.LoginRequest{Email: "test@example.com", Password: "password123"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "passwordHash")
		var resp models.LoginResponse
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &resp))
		assert.NotEmpty(t, resp.Token)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.Equal(t, user.Email, resp.User.Email)

		claims, err := authService.ValidateToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID.Hex(), claims.UserID)
		risk.AssertNotCalled(t, "RecordFailedAttempt", mock.Anything, mock.Anything)
		users.AssertExpectations(t)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		r, users, risk := newHandler()
		user := &models.User{
			ID:           primitive.NewObjectID(),
			Email:        "test@example.com",
			PasswordHash: passwordHash,
			Role:         models.RoleCustomer,
			IsActive:     true,
		}
		users.On("FindUserByEmail", mock.Anything, "test@example.com").Return(user, nil)
		risk.On("RecordFailedAttempt", mock.Anything, "192.0.2.1").Return(false).Once()

		w := doJSON(r, http.MethodPost, "/api/auth/login", models.LoginRequest{Email: "test@example.com", Password: "wrongpassword"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid credentials", decode(t, w).Error.Message)
		risk.AssertExpectations(t)
		users.AssertNotCalled(t, "UpdateLastLogin", mock.Anything, mock.Anything)
	})

	t.Run("unknown email", func(t *testing.T) {
		r, users, risk := newHandler()
		users.On("FindUserByEmail", mock.Anything, "nobody@example.com").Return(nil, db.ErrNotFound)
		risk.On("RecordFailedAttempt", mock.Anything, "192.0.2.1").Return(false).Once()

		w := doJSON(r, http.MethodPost, "/api/auth/login", models.LoginRequest{Email: "nobody@example.com", Password: "password123"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid credentials", decode(t, w).Error.Message)
		risk.AssertExpectations(t)
	})

	t.Run("deactivated account", func(t *testing.T) {
		r, users, risk := newHandler()
		user := &models.User{
			ID:           primitive.NewObjectID(),
			Email:        "test@example.com",
			PasswordHash: passwordHash,
			Role:         models.RoleCustomer,
		}
		users.On("FindUserByEmail", mock.Anything, "test@example.com").Return(user, nil)

		w := doJSON(r, http.MethodPost, "/api/auth/login", models.LoginRequest{Email: "test@example.com", Password: "password123"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Account is deactivated", decode(t, w).Error.Message)
		risk.AssertNotCalled(t, "RecordFailedAttempt", mock.Anything, mock.Anything)
	})

	t.Run("store failure", func(t *testing.T) {
		r, users, risk := newHandler()
		users.On("FindUserByEmail", mock.Anything, "test@example.com").Return(nil, errors.New("connection reset"))

		w := doJSON(r, http.MethodPost, "/api/auth/login", models.LoginRequest{Email: "test@example.com", Password: "password123"})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection reset")
		risk.AssertNotCalled(t, "RecordFailedAttempt", mock.Anything, mock.Anything)
	})

	t.Run("missing fields", func(t *testing.T) {
		r, _, _ := newHandler()
		w := doJSON(r, http.MethodPost, "/api/auth/login", map[string]string{"email": "test@example.com"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, middleware.CodeValidation, decode(t, w).Error.Code)
	})
}

func TestAuthHandler_Register(t *testing.T) {
	authService := auth.NewService("test-secret", time.Hour)

	newHandler := func() (*gin.Engine, *MockUserCollection) {
		users := new(MockUserCollection)
		h := NewAuthHandler(authService, users, nil, quietLogger())
		r := gin.New()
		r.POST("/api/auth/register", h.Register)
		return r, users
	}

	t.Run("successful registration is always a customer", func(t *testing.T) {
		r, users := newHandler()
		users.On("InsertUser", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return u.Role == models.RoleCustomer && u.PasswordHash != "" && u.PasswordHash != "password123"
		})).Return(nil)

		w := doJSON(r, http.MethodPost, "/api/auth/register", map[string]string{
			"name":     "New User",
			"email":    "new@example.com",
			"password": "password123",
			"role":     "admin",
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp models.LoginResponse
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &resp))
		assert.Equal(t, models.RoleCustomer, resp.User.Role)
		assert.NotEmpty(t, resp.Token)
		users.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		r, users := newHandler()
		users.On("InsertUser", mock.Anything, mock.Anything).Return(db.ErrDuplicate)

		w := doJSON(r, http.MethodPost, "/api/auth/register", map[string]string{
			"name":     "New User",
			"email":    "taken@example.com",
			"password": "password123",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "Email already exists", decode(t, w).Error.Message)
	})

	t.Run("weak password", func(t *testing.T) {
		r, users := newHandler()
		w := doJSON(r, http.MethodPost, "/api/auth/register", map[string]string{
			"name":     "New User",
			"email":    "new@example.com",
			"password": "short",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		users.AssertNotCalled(t, "InsertUser", mock.Anything, mock.Anything)
	})

	t.Run("invalid email", func(t *testing.T) {
		r, users := newHandler()
		w := doJSON(r, http.MethodPost, "/api/auth/register", map[string]string{
			"name":     "New User",
			"email":    "not-an-email",
			"password": "password123",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		users.AssertNotCalled(t, "InsertUser", mock.Anything, mock.Anything)
	})
}

func TestAuthHandler_GetProfile(t *testing.T) {
	authService := auth.NewService("test-secret", time.Hour)
	users := new(MockUserCollection)
	h := NewAuthHandler(authService, users, nil, quietLogger())

	user := &models.User{
		ID:       primitive.NewObjectID(),
		Name:     "Mechanic",
		Email:    "mech@example.com",
		Role:     models.RoleMechanic,
		IsActive: true,
	}
	users.On("FindUserByID", mock.Anything, user.ID.Hex()).Return(user, nil)

	r := gin.New()
	r.GET("/api/auth/me", asUser(user), h.GetProfile)

	w := doJSON(r, http.MethodGet, "/api/auth/me", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		User        models.User         `json:"user"`
		Permissions []models.Permission `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &body))
	assert.Equal(t, user.Email, body.User.Email)
	assert.Contains(t, body.Permissions, models.PermUpdateProgress)
}

func TestAuthHandler_UpdateProfile(t *testing.T) {
	authService := auth.NewService("test-secret", time.Hour)
	users := new(MockUserCollection)
	h := NewAuthHandler(authService, users, nil, quietLogger())

	user := &models.User{
		ID:       primitive.NewObjectID(),
		Name:     "Old Name",
		Email:    "old@example.com",
		Role:     models.RoleCustomer,
		IsActive: true,
	}
	users.On("FindUserByID", mock.Anything, user.ID.Hex()).Return(user, nil)
	users.On("UpdateUser", mock.Anything, user.ID.Hex(), mock.MatchedBy(func(u models.User) bool {
		return u.Name == "New Name" && u.Phone == "555-0100" && u.Email == "old@example.com"
	})).Return(nil)

	r := gin.New()
	r.PUT("/api/auth/me", asUser(user), h.UpdateProfile)

	w := doJSON(r, http.MethodPut, "/api/auth/me", map[string]string{"name": "New Name", "phone": "555-0100"})

	assert.Equal(t, http.StatusOK, w.Code)
	users.AssertExpectations(t)
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	authService := auth.NewService("test-secret", time.Hour)
	passwordHash, err := authService.HashPassword("oldpassword")
	require.NoError(t, err)

	newUser := func() *models.User {
		return &models.User{
			ID:           primitive.NewObjectID(),
			Email:        "test@example.com",
			PasswordHash: passwordHash,
			Role:         models.RoleCustomer,
			IsActive:     true,
		}
	}

	t.Run("successful change", func(t *testing.T) {
		users := new(MockUserCollection)
		h := NewAuthHandler(authService, users, nil, quietLogger())
		user := newUser()
		users.On("FindUserByID", mock.Anything, user.ID.Hex()).Return(user, nil)
		users.On("UpdateUser", mock.Anything, user.ID.Hex(), mock.MatchedBy(func(u models.User) bool {
			return authService.CheckPassword("newpassword", u.PasswordHash)
		})).Return(nil)

		r := gin.New()
		r.POST("/api/auth/change-password", asUser(user), h.ChangePassword)
		w := doJSON(r, http.MethodPost, "/api/auth/change-password", map[string]string{
			"currentPassword": "oldpassword",
			"newPassword":     "newpassword",
		})

		assert.Equal(t, http.StatusOK, w.Code)
		users.AssertExpectations(t)
	})

	t.Run("wrong current password", func(t *testing.T) {
		users := new(MockUserCollection)
		h := NewAuthHandler(authService, users, nil, quietLogger())
		user := newUser()
		users.On("FindUserByID", mock.Anything, user.ID.Hex()).Return(user, nil)

		r := gin.New()
		r.POST("/api/auth/change-password", asUser(user), h.ChangePassword)
		w := doJSON(r, http.MethodPost, "/api/auth/change-password", map[string]string{
			"currentPassword": "not-it-at-all",
			"newPassword":     "newpassword",
		})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		users.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything)
	})
}
