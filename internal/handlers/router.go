package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/service-center/internal/auth"
	"github.com/ukydev/service-center/internal/db"
	"github.com/ukydev/service-center/internal/logging"
	"github.com/ukydev/service-center/internal/middleware"
	"github.com/ukydev/service-center/internal/models"
	"github.com/ukydev/service-center/internal/notify"
	"github.com/ukydev/service-center/internal/progress"
	"github.com/ukydev/service-center/internal/storage"
)

// Deps is everything the HTTP surface needs.
type Deps struct {
	Auth          *auth.Service
	Users         db.UserCollection
	Vehicles      db.VehicleCollection
	Services      db.ServiceCollection
	Appointments  db.AppointmentCollection
	Modifications db.ModificationCollection

	Progress *progress.Service
	Notify   *notify.Service
	Risk     FailedLoginRecorder
	Mailer   Mailer
	Files    storage.FileStore
	// Websocket is mounted on /ws when set.
	Websocket gin.HandlerFunc
	DB        Pinger

	RateLimiter       *middleware.RateLimitMiddleware
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSOrigins       []string
	MaxUploadBytes    int64
	// UploadsDir is served on /uploads when files are kept on disk.
	UploadsDir string

	Log logrus.FieldLogger
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", logging.RequestIDHeader},
		ExposeHeaders:    []string{logging.RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			origins = nil
			break
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		logging.RequestID(),
		logging.Requests(d.Log),
		gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
			d.Log.WithField("request_id", logging.GetRequestID(c)).Errorf("panic: %v", recovered)
			middleware.Abort(c, http.StatusInternalServerError, middleware.CodeInternal, "Internal server error")
		}),
		cors.New(corsConfig(d.CORSOrigins)),
	)
	r.NoRoute(func(c *gin.Context) {
		middleware.Abort(c, http.StatusNotFound, middleware.CodeNotFound, "Route not found")
	})

	r.GET("/health", Health(d.DB))
	if d.Websocket != nil {
		r.GET("/ws", d.Websocket)
	}
	if d.UploadsDir != "" {
		r.Static("/uploads", d.UploadsDir)
	}

	authMW := middleware.NewAuthMiddleware(d.Auth, d.Users)
	staff := authMW.RequireRole(models.StaffRoles...)
	admin := authMW.RequireRole(models.RoleAdmin)

	authH := NewAuthHandler(d.Auth, d.Users, d.Risk, d.Log)
	userH := NewUserHandler(d.Users)
	vehicleH := NewVehicleHandler(d.Vehicles, d.Users)
	serviceH := NewServiceHandler(d.Services, d.Appointments, d.Notify, d.Log)
	apptH := NewAppointmentHandler(d.Appointments, d.Vehicles, d.Notify, d.Mailer, d.Log)
	modH := NewModificationHandler(d.Modifications, d.Files, d.Notify, d.MaxUploadBytes, d.Log)
	progressH := NewProgressHandler(d.Progress)
	notifH := NewNotificationHandler(d.Notify)

	api := r.Group("/api", authMW.Authenticate())

	authGroup := api.Group("/auth")
	if d.RateLimiter != nil && d.RateLimitRequests > 0 {
		authGroup.Use(d.RateLimiter.RateLimit(d.RateLimitRequests, d.RateLimitWindow))
	}
	authGroup.POST("/login", authH.Login)
	authGroup.POST("/register", authH.Register)
	authGroup.GET("/me", authH.GetProfile)
	authGroup.PUT("/me", authH.UpdateProfile)
	authGroup.POST("/change-password", authH.ChangePassword)

	users := api.Group("/users", admin)
	users.GET("", userH.List)
	users.GET("/:id", userH.Get)
	users.PUT("/:id/role", userH.SetRole)
	users.PUT("/:id/status", userH.SetStatus)
	users.PUT("/:id/permissions", userH.SetPermissions)

	vehicles := api.Group("/vehicles")
	vehicles.GET("", vehicleH.List)
	vehicles.POST("", vehicleH.Create)
	vehicles.GET("/:id", vehicleH.Get)
	vehicles.PUT("/:id", vehicleH.Update)
	vehicles.DELETE("/:id", vehicleH.Delete)

	services := api.Group("/services", staff)
	services.GET("", serviceH.List)
	services.POST("", authMW.RequirePermission(models.PermManageServices), serviceH.Create)
	services.GET("/:id", serviceH.Get)
	services.PUT("/:id/claim", serviceH.Claim)
	services.PUT("/:id/status", serviceH.UpdateStatus)

	appts := api.Group("/appointments")
	appts.POST("", apptH.Create)
	appts.GET("/my", apptH.Mine)
	appts.PUT("/:id/cancel", apptH.Cancel)
	appts.GET("", staff, apptH.List)
	appts.PUT("/:id/status", staff, apptH.UpdateStatus)

	mods := api.Group("/modifications")
	mods.POST("", modH.Create)
	mods.GET("/my", modH.Mine)
	mods.GET("", authMW.RequirePermission(models.PermReviewModifications), modH.List)
	mods.PUT("/:id/status", authMW.RequirePermission(models.PermReviewModifications), modH.UpdateStatus)

	prog := api.Group("/progress")
	prog.POST("", staff, progressH.CreateOrUpdate)
	prog.PUT("/:id", staff, progressH.Update)
	prog.GET("/customer", progressH.Customer)
	prog.GET("/employee", staff, progressH.Employee)
	prog.GET("/:id/history", progressH.History)

	notifs := api.Group("/notifications")
	notifs.GET("", notifH.List)
	notifs.GET("/unread-count", notifH.UnreadCount)
	notifs.PUT("/read-all", notifH.MarkAllRead)
	notifs.PUT("/:id/read", notifH.MarkRead)

	return r
}
