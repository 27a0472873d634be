package models

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents user roles in the system
type Role string

const (
	RoleCustomer         Role = "customer"
	RoleEmployee         Role = "employee"
	RoleInventoryManager Role = "inventory_manager"
	RoleServiceManager   Role = "service_manager"
	RoleMechanic         Role = "mechanic"
	RoleAdmin            Role = "admin"
)

// StaffRoles are the roles allowed to work on services and write progress.
var StaffRoles = []Role{RoleEmployee, RoleMechanic, RoleServiceManager, RoleAdmin}

// Permission is a single capability checked by the permission middleware
type Permission string

const (
	PermViewProgress        Permission = "view_progress"
	PermUpdateProgress      Permission = "update_progress"
	PermManageAppointments  Permission = "manage_appointments"
	PermManageServices      Permission = "manage_services"
	PermManageVehicles      Permission = "manage_vehicles"
	PermManageInventory     Permission = "manage_inventory"
	PermManageUsers         Permission = "manage_users"
	PermReviewModifications Permission = "review_modifications"
	PermViewReports         Permission = "view_reports"
)

// AllPermissions lists every permission known to the system.
var AllPermissions = []Permission{
	PermViewProgress,
	PermUpdateProgress,
	PermManageAppointments,
	PermManageServices,
	PermManageVehicles,
	PermManageInventory,
	PermManageUsers,
	PermReviewModifications,
	PermViewReports,
}

var rolePermissions = map[Role][]Permission{
	RoleCustomer:         {PermViewProgress},
	RoleEmployee:         {PermViewProgress, PermUpdateProgress, PermManageServices},
	RoleMechanic:         {PermViewProgress, PermUpdateProgress, PermManageServices},
	RoleServiceManager:   {PermViewProgress, PermUpdateProgress, PermManageServices, PermManageAppointments, PermViewReports},
	RoleInventoryManager: {PermManageInventory, PermViewReports},
}

// User represents a user in the system
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	Permissions  []Permission       `bson:"permissions,omitempty" json:"permissions,omitempty"`
	IsActive     bool               `bson:"isActive" json:"isActive"`
	LastLogin    *time.Time         `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest represents a customer self-registration request
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Phone    string `json:"phone"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// Claims represents JWT claims
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Exp    int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleCustomer, RoleEmployee, RoleInventoryManager, RoleServiceManager, RoleMechanic, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsStaff reports whether the role may work on services.
func IsStaff(role Role) bool {
	for _, r := range StaffRoles {
		if r == role {
			return true
		}
	}
	return false
}

// IsValidPermission checks if a permission is known
func IsValidPermission(p Permission) bool {
	for _, known := range AllPermissions {
		if known == p {
			return true
		}
	}
	return false
}

// PermissionsForRole returns the default permission set implied by a role.
// Admins implicitly hold every permission.
func PermissionsForRole(role Role) []Permission {
	if role == RoleAdmin {
		return append([]Permission(nil), AllPermissions...)
	}
	return append([]Permission(nil), rolePermissions[role]...)
}

// EffectivePermissions is the union of the role defaults and explicit grants.
// It is computed on every call so changes to role defaults apply immediately.
func (u *User) EffectivePermissions() []Permission {
	set := make(map[Permission]struct{})
	for _, p := range PermissionsForRole(u.Role) {
		set[p] = struct{}{}
	}
	for _, p := range u.Permissions {
		set[p] = struct{}{}
	}
	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasPermission checks if a user has permission for a specific action
func (u *User) HasPermission(p Permission) bool {
	if u.Role == RoleAdmin {
		return true
	}
	for _, granted := range u.EffectivePermissions() {
		if granted == p {
			return true
		}
	}
	return false
}
