package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ukydev/service-center/internal/db"
	"github.com/ukydev/service-center/internal/middleware"
	"github.com/ukydev/service-center/internal/models"
	"github.com/ukydev/service-center/internal/progress"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HTTPError is an error that already knows its response.
type HTTPError struct {
	Status  int
	Code    string
	Message string
}

func (e *HTTPError) Error() string { return e.Message }

func errBadRequest(msg string) error {
	return &HTTPError{Status: http.StatusBadRequest, Code: middleware.CodeValidation, Message: msg}
}

func errUnauthorized(msg string) error {
	return &HTTPError{Status: http.StatusUnauthorized, Code: middleware.CodeUnauthorized, Message: msg}
}

func errForbidden(msg string) error {
	return &HTTPError{Status: http.StatusForbidden, Code: middleware.CodeForbidden, Message: msg}
}

func errNotFound(msg string) error {
	return &HTTPError{Status: http.StatusNotFound, Code: middleware.CodeNotFound, Message: msg}
}

func errConflict(msg string) error {
	return &HTTPError{Status: http.StatusConflict, Code: middleware.CodeConflict, Message: msg}
}

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, middleware.Response{Success: true, Data: data})
}

// respondError maps an error onto the response taxonomy. Unexpected errors
// are attached to the context for the request logger and answered with a
// generic message.
func respondError(c *gin.Context, err error) {
	var he *HTTPError
	switch {
	case errors.As(err, &he):
		middleware.Abort(c, he.Status, he.Code, he.Message)
	case errors.Is(err, progress.ErrInvalidInput):
		middleware.Abort(c, http.StatusBadRequest, middleware.CodeValidation, err.Error())
	case errors.Is(err, db.ErrInvalidID):
		middleware.Abort(c, http.StatusBadRequest, middleware.CodeValidation, "Invalid id")
	case errors.Is(err, db.ErrNotFound):
		middleware.Abort(c, http.StatusNotFound, middleware.CodeNotFound, "Resource not found")
	case errors.Is(err, db.ErrDuplicate):
		middleware.Abort(c, http.StatusConflict, middleware.CodeConflict, "Resource already exists")
	default:
		_ = c.Error(err)
		middleware.Abort(c, http.StatusInternalServerError, middleware.CodeInternal, "Internal server error")
	}
}

// bindJSON decodes and validates the body, answering 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		middleware.Abort(c, http.StatusBadRequest, middleware.CodeValidation, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// caller returns the authenticated identity of the request.
func caller(c *gin.Context) (*models.Claims, primitive.ObjectID, bool) {
	claims, ok := middleware.GetUserFromContext(c)
	if !ok {
		respondError(c, errUnauthorized("User context not found"))
		return nil, primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		respondError(c, errUnauthorized("Invalid token subject"))
		return nil, primitive.NilObjectID, false
	}
	return claims, id, true
}

func objectID(value, field string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		return primitive.NilObjectID, errBadRequest(field + " is not a valid id")
	}
	return id, nil
}

// optionalObjectID parses an id that may be empty.
func optionalObjectID(value, field string) (*primitive.ObjectID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := objectID(value, field)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
