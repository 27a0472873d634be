// Package dbtest provides in-memory collections for tests.
package dbtest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ukydev/service-center/internal/db"
	"github.com/ukydev/service-center/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store bundles one in-memory instance of every collection.
type Store struct {
	Users          *Users
	Vehicles       *Vehicles
	Services       *Services
	Appointments   *Appointments
	Progress       *Progress
	ProgressEvents *ProgressEvents
	Notifications  *Notifications
	Modifications  *Modifications
}

// NewStore returns empty collections.
func NewStore() *Store {
	return &Store{
		Users:          &Users{},
		Vehicles:       &Vehicles{},
		Services:       &Services{},
		Appointments:   &Appointments{},
		Progress:       &Progress{},
		ProgressEvents: &ProgressEvents{},
		Notifications:  &Notifications{},
		Modifications:  &Modifications{},
	}
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, db.ErrInvalidID
	}
	return oid, nil
}

func assignID(id *primitive.ObjectID) {
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
}

// Users is an in-memory db.UserCollection.
type Users struct {
	mu    sync.Mutex
	items []models.User
	// Err, when set, is returned by every call.
	Err error
}

var _ db.UserCollection = (*Users)(nil)

func (c *Users) index(id string) (int, error) {
	oid, err := parseID(id)
	if err != nil {
		return -1, err
	}
	for i := range c.items {
		if c.items[i].ID == oid {
			return i, nil
		}
	}
	return -1, db.ErrNotFound
}

func (c *Users) InsertUser(_ context.Context, user *models.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range c.items {
		if u.Email == user.Email {
			return db.ErrDuplicate
		}
	}
	assignID(&user.ID)
	user.IsActive = true
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	c.items = append(c.items, *user)
	return nil
}

// Add stores a user as given, keeping its IsActive flag.
func (c *Users) Add(user models.User) models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	assignID(&user.ID)
	c.items = append(c.items, user)
	return user
}

func (c *Users) FindUserByID(_ context.Context, id string) (*models.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	i, err := c.index(id)
	if err != nil {
		return nil, err
	}
	u := c.items[i]
	return &u, nil
}

func (c *Users) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range c.items {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, db.ErrNotFound
}

func (c *Users) FindUsers(_ context.Context, role models.Role) ([]models.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	out := []models.User{}
	for _, u := range c.items {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (c *Users) FindActiveUsersByRole(_ context.Context, role models.Role) ([]models.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	out := []models.User{}
	for _, u := range c.items {
		if u.Role == role && u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func (c *Users) UpdateUser(_ context.Context, id string, user models.User) error {
	return c.mutate(id, func(u *models.User) {
		oid := u.ID
		*u = user
		u.ID = oid
	})
}

func (c *Users) SetUserRole(_ context.Context, id string, role models.Role) error {
	return c.mutate(id, func(u *models.User) { u.Role = role })
}

func (c *Users) SetUserActive(_ context.Context, id string, active bool) error {
	return c.mutate(id, func(u *models.User) { u.IsActive = active })
}

func (c *Users) SetUserPermissions(_ context.Context, id string, permissions []models.Permission) error {
	return c.mutate(id, func(u *models.User) { u.Permissions = permissions })
}

func (c *Users) UpdateLastLogin(_ context.Context, id string) error {
	return c.mutate(id, func(u *models.User) {
		now := time.Now()
		u.LastLogin = &now
	})
}

func (c *Users) mutate(id string, fn func(u *models.User)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	i, err := c.index(id)
	if err != nil {
		return err
	}
	fn(&c.items[i])
	c.items[i].UpdatedAt = time.Now()
	return nil
}

// Vehicles is an in-memory db.VehicleCollection.
type Vehicles struct {
	mu    sync.Mutex
	items []models.Vehicle
}

var _ db.VehicleCollection = (*Vehicles)(nil)

func (c *Vehicles) InsertVehicle(_ context.Context, v *models.Vehicle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	plate := strings.ToUpper(strings.Join(strings.Fields(v.RegistrationNumber), ""))
	for _, existing := range c.items {
		if existing.RegistrationNumber == plate {
			return db.ErrDuplicate
		}
	}
	assignID(&v.ID)
	v.RegistrationNumber = plate
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	c.items = append(c.items, *v)
	return nil
}

func (c *Vehicles) FindVehicleByID(_ context.Context, id string) (*models.Vehicle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	for _, v := range c.items {
		if v.ID == oid {
			return &v, nil
		}
	}
	return nil, db.ErrNotFound
}

func (c *Vehicles) FindVehiclesByOwner(_ context.Context, owner primitive.ObjectID) ([]models.Vehicle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []models.Vehicle{}
	for _, v := range c.items {
		if v.Owner == owner {
			out = append(out, v)
		}
	}
	return out, nil
}

func (c *Vehicles) FindAllVehicles(_ context.Context) ([]models.Vehicle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Vehicle{}, c.items...), nil
}

func (c *Vehicles) UpdateVehicle(_ context.Context, v *models.Vehicle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	plate := strings.ToUpper(strings.Join(strings.Fields(v.RegistrationNumber), ""))
	for i := range c.items {
		if c.items[i].ID != v.ID && c.items[i].RegistrationNumber == plate {
			return db.ErrDuplicate
		}
	}
	for i := range c.items {
		if c.items[i].ID == v.ID {
			v.RegistrationNumber = plate
			v.UpdatedAt = time.Now()
			c.items[i] = *v
			return nil
		}
	}
	return db.ErrNotFound
}

func (c *Vehicles) DeleteVehicle(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	for i := range c.items {
		if c.items[i].ID == oid {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return nil
		}
	}
	return db.ErrNotFound
}

// Services is an in-memory db.ServiceCollection.
type Services struct {
	mu    sync.Mutex
	items []models.Service
}

var _ db.ServiceCollection = (*Services)(nil)

func (c *Services) InsertService(_ context.Context, s *models.Service) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	assignID(&s.ID)
	if s.Status == "" {
		s.Status = models.ServicePending
	}
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	c.items = append(c.items, *s)
	return nil
}

func (c *Services) FindServiceByID(_ context.Context, id string) (*models.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	for _, s := range c.items {
		if s.ID == oid {
			return &s, nil
		}
	}
	return nil, db.ErrNotFound
}

func (c *Services) FindServices(_ context.Context, status models.ServiceStatus) ([]models.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []models.Service{}
	for _, s := range c.items {
		if status == "" || s.Status == status {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *Services) UpdateService(_ context.Context, s *models.Service) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == s.ID {
			s.UpdatedAt = time.Now()
			c.items[i] = *s
			return nil
		}
	}
	return db.ErrNotFound
}

// Appointments is an in-memory db.AppointmentCollection.
type Appointments struct {
	mu    sync.Mutex
	items []models.Appointment
}

var _ db.AppointmentCollection = (*Appointments)(nil)

func (c *Appointments) InsertAppointment(_ context.Context, a *models.Appointment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	assignID(&a.ID)
	if a.Status == "" {
		a.Status = models.AppointmentPending
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	c.items = append(c.items, *a)
	return nil
}

func (c *Appointments) FindAppointmentByID(_ context.Context, id string) (*models.Appointment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	for _, a := range c.items {
		if a.ID == oid {
			return &a, nil
		}
	}
	return nil, db.ErrNotFound
}

func (c *Appointments) FindAppointmentsByCustomer(_ context.Context, customer primitive.ObjectID) ([]models.Appointment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []models.Appointment{}
	for _, a := range c.items {
		if a.Customer == customer {
			out = append(out, a)
		}
	}
	return out, nil
}

func (c *Appointments) FindAppointments(_ context.Context, status models.AppointmentStatus) ([]models.Appointment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []models.Appointment{}
	for _, a := range c.items {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (c *Appointments) UpdateAppointment(_ context.Context, a *models.Appointment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == a.ID {
			a.UpdatedAt = time.Now()
			c.items[i] = *a
			return nil
		}
	}
	return db.ErrNotFound
}

// Progress is an in-memory db.ProgressCollection.
type Progress struct {
	mu    sync.Mutex
	items []models.ProgressLog
	// Err, when set, is returned by writes.
	Err error
}

var _ db.ProgressCollection = (*Progress)(nil)

func (c *Progress) InsertProgress(_ context.Context, log *models.ProgressLog) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	for _, l := range c.items {
		if l.Service == log.Service && l.Vehicle == log.Vehicle && l.Customer == log.Customer {
			return db.ErrDuplicate
		}
	}
	assignID(&log.ID)
	log.CreatedAt = time.Now()
	log.UpdatedAt = log.CreatedAt
	c.items = append(c.items, *log)
	return nil
}

func (c *Progress) FindProgressByID(_ context.Context, id string) (*models.ProgressLog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	for _, l := range c.items {
		if l.ID == oid {
			return &l, nil
		}
	}
	return nil, db.ErrNotFound
}

func (c *Progress) FindProgressByThread(_ context.Context, service, vehicle, customer primitive.ObjectID) (*models.ProgressLog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range c.items {
		if l.Service == service && l.Vehicle == vehicle && l.Customer == customer {
			return &l, nil
		}
	}
	return nil, db.ErrNotFound
}

func (c *Progress) FindProgressByCustomer(_ context.Context, customer primitive.ObjectID) ([]models.ProgressLog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []models.ProgressLog{}
	for _, l := range c.items {
		if l.Customer == customer {
			out = append(out, l)
		}
	}
	sortByUpdated(out)
	return out, nil
}

func (c *Progress) FindAllProgress(_ context.Context) ([]models.ProgressLog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]models.ProgressLog{}, c.items...)
	sortByUpdated(out)
	return out, nil
}

func (c *Progress) UpdateProgress(_ context.Context, log *models.ProgressLog) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	for i := range c.items {
		if c.items[i].ID == log.ID {
			log.UpdatedAt = time.Now()
			c.items[i] = *log
			return nil
		}
	}
	return db.ErrNotFound
}

func sortByUpdated(logs []models.ProgressLog) {
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].UpdatedAt.After(logs[j].UpdatedAt) })
}

// ProgressEvents is an in-memory db.ProgressEventCollection.
type ProgressEvents struct {
	mu    sync.Mutex
	items []models.ProgressEvent
	// Err, when set, is returned by inserts.
	Err error
}

var _ db.ProgressEventCollection = (*ProgressEvents)(nil)

func (c *ProgressEvents) InsertProgressEvent(_ context.Context, e *models.ProgressEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	assignID(&e.ID)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	c.items = append(c.items, *e)
	return nil
}

func (c *ProgressEvents) FindProgressEvents(_ context.Context, progressLog primitive.ObjectID) ([]models.ProgressEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []models.ProgressEvent{}
	for _, e := range c.items {
		if e.ProgressLog == progressLog {
			out = append(out, e)
		}
	}
	return out, nil
}

// Notifications is an in-memory db.NotificationCollection.
type Notifications struct {
	mu    sync.Mutex
	items []models.Notification
	// Err, when set, is returned by inserts.
	Err error
	// FailFor makes inserts addressed to these recipients fail.
	FailFor map[primitive.ObjectID]bool
}

var _ db.NotificationCollection = (*Notifications)(nil)

func (c *Notifications) InsertNotification(_ context.Context, n *models.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	if c.FailFor[n.Recipient] {
		return errors.New("insert failed")
	}
	assignID(&n.ID)
	n.Read = false
	n.ReadAt = nil
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	c.items = append(c.items, *n)
	return nil
}

// All returns every stored notification in insertion order.
func (c *Notifications) All() []models.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Notification{}, c.items...)
}

// For returns the notifications addressed to one recipient.
func (c *Notifications) For(recipient primitive.ObjectID) []models.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []models.Notification{}
	for _, n := range c.items {
		if n.Recipient == recipient {
			out = append(out, n)
		}
	}
	return out
}

func (c *Notifications) FindNotificationsByRecipient(_ context.Context, recipient primitive.ObjectID, unreadOnly bool, limit int64) ([]models.Notification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []models.Notification{}
	for i := len(c.items) - 1; i >= 0; i-- {
		n := c.items[i]
		if n.Recipient != recipient || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (c *Notifications) MarkNotificationRead(_ context.Context, id string, recipient primitive.ObjectID, at time.Time) (*models.Notification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	for i := range c.items {
		n := &c.items[i]
		if n.ID != oid || n.Recipient != recipient {
			continue
		}
		if !n.Read {
			n.Read = true
			readAt := at
			n.ReadAt = &readAt
		}
		out := *n
		return &out, nil
	}
	return nil, db.ErrNotFound
}

func (c *Notifications) MarkAllNotificationsRead(_ context.Context, recipient primitive.ObjectID, at time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var changed int64
	for i := range c.items {
		n := &c.items[i]
		if n.Recipient == recipient && !n.Read {
			n.Read = true
			readAt := at
			n.ReadAt = &readAt
			changed++
		}
	}
	return changed, nil
}

func (c *Notifications) CountUnread(_ context.Context, recipient primitive.ObjectID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var count int64
	for _, n := range c.items {
		if n.Recipient == recipient && !n.Read {
			count++
		}
	}
	return count, nil
}

// Modifications is an in-memory db.ModificationCollection.
type Modifications struct {
	mu    sync.Mutex
	items []models.Modification
}

var _ db.ModificationCollection = (*Modifications)(nil)

func (c *Modifications) InsertModification(_ context.Context, m *models.Modification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	assignID(&m.ID)
	if m.Status == "" {
		m.Status = models.ModificationPending
	}
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	c.items = append(c.items, *m)
	return nil
}

func (c *Modifications) FindModificationByID(_ context.Context, id string) (*models.Modification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	for _, m := range c.items {
		if m.ID == oid {
			return &m, nil
		}
	}
	return nil, db.ErrNotFound
}

func (c *Modifications) FindModificationsByCustomer(_ context.Context, customer primitive.ObjectID) ([]models.Modification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []models.Modification{}
	for _, m := range c.items {
		if m.Customer == customer {
			out = append(out, m)
		}
	}
	return out, nil
}

func (c *Modifications) FindModifications(_ context.Context, status models.ModificationStatus) ([]models.Modification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []models.Modification{}
	for _, m := range c.items {
		if status == "" || m.Status == status {
			out = append(out, m)
		}
	}
	return out, nil
}

func (c *Modifications) UpdateModification(_ context.Context, m *models.Modification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == m.ID {
			m.UpdatedAt = time.Now()
			c.items[i] = *m
			return nil
		}
	}
	return db.ErrNotFound
}
