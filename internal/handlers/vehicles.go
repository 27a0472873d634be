package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ukydev/service-center/internal/db"
	"github.com/ukydev/service-center/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VehicleHandler serves the vehicle registry.
type VehicleHandler struct {
	vehicles db.VehicleCollection
	users    db.UserCollection
}

// NewVehicleHandler creates a vehicle handler.
func NewVehicleHandler(vehicles db.VehicleCollection, users db.UserCollection) *VehicleHandler {
	return &VehicleHandler{vehicles: vehicles, users: users}
}

// List returns the caller's vehicles, or every vehicle for staff.
func (h *VehicleHandler) List(c *gin.Context) {
	claims, userID, ok := caller(c)
	if !ok {
		return
	}

	var (
		vehicles []models.Vehicle
		err      error
	)
	if models.IsStaff(claims.Role) {
		vehicles, err = h.vehicles.FindAllVehicles(c.Request.Context())
	} else {
		vehicles, err = h.vehicles.FindVehiclesByOwner(c.Request.Context(), userID)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, vehicles)
}

// Create registers a vehicle. Admins may register on behalf of another user.
func (h *VehicleHandler) Create(c *gin.Context) {
	claims, userID, ok := caller(c)
	if !ok {
		return
	}

	var req models.VehicleRequest
	if !bindJSON(c, &req) {
		return
	}

	owner := userID
	if req.OwnerID != "" && req.OwnerID != claims.UserID {
		if claims.Role != models.RoleAdmin {
			respondError(c, errForbidden("Only admins can register vehicles for other users"))
			return
		}
		user, err := h.users.FindUserByID(c.Request.Context(), req.OwnerID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) || errors.Is(err, db.ErrInvalidID) {
				respondError(c, errBadRequest("Owner not found"))
				return
			}
			respondError(c, err)
			return
		}
		owner = user.ID
	}

	vehicle := &models.Vehicle{Owner: owner}
	applyVehicleRequest(vehicle, req)
	if err := h.vehicles.InsertVehicle(c.Request.Context(), vehicle); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			respondError(c, errConflict("Registration number already exists"))
			return
		}
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, vehicle)
}

func applyVehicleRequest(v *models.Vehicle, req models.VehicleRequest) {
	v.RegistrationNumber = req.RegistrationNumber
	v.Make = strings.TrimSpace(req.Make)
	v.Model = strings.TrimSpace(req.Model)
	v.Year = req.Year
	v.VIN = req.VIN
	v.Color = req.Color
	v.Mileage = req.Mileage
	v.FuelType = req.FuelType
}

// load fetches a vehicle the caller may see. Owners and staff may read;
// writes are limited to owners and admins.
func (h *VehicleHandler) load(c *gin.Context, write bool) (*models.Vehicle, bool) {
	claims, userID, ok := caller(c)
	if !ok {
		return nil, false
	}

	vehicle, err := h.vehicles.FindVehicleByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}

	if !canAccessVehicle(vehicle, claims.Role, userID, write) {
		respondError(c, errForbidden("You do not have access to this vehicle"))
		return nil, false
	}
	return vehicle, true
}

func canAccessVehicle(v *models.Vehicle, role models.Role, userID primitive.ObjectID, write bool) bool {
	switch {
	case v.Owner == userID, role == models.RoleAdmin:
		return true
	case write:
		return false
	default:
		return models.IsStaff(role)
	}
}

// Get returns a single vehicle.
func (h *VehicleHandler) Get(c *gin.Context) {
	vehicle, ok := h.load(c, false)
	if !ok {
		return
	}
	respondOK(c, http.StatusOK, vehicle)
}

// Update edits a vehicle. Ownership is not transferable here.
func (h *VehicleHandler) Update(c *gin.Context) {
	vehicle, ok := h.load(c, true)
	if !ok {
		return
	}

	var req models.VehicleRequest
	if !bindJSON(c, &req) {
		return
	}

	applyVehicleRequest(vehicle, req)
	if err := h.vehicles.UpdateVehicle(c.Request.Context(), vehicle); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			respondError(c, errConflict("Registration number already exists"))
			return
		}
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, vehicle)
}

// Delete removes a vehicle.
func (h *VehicleHandler) Delete(c *gin.Context) {
	vehicle, ok := h.load(c, true)
	if !ok {
		return
	}

	if err := h.vehicles.DeleteVehicle(c.Request.Context(), vehicle.ID.Hex()); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Vehicle deleted"})
}
