package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/service-center/internal/auth"
	"github.com/ukydev/service-center/internal/config"
	"github.com/ukydev/service-center/internal/db"
	"github.com/ukydev/service-center/internal/handlers"
	"github.com/ukydev/service-center/internal/logging"
	"github.com/ukydev/service-center/internal/mail"
	"github.com/ukydev/service-center/internal/middleware"
	"github.com/ukydev/service-center/internal/notify"
	"github.com/ukydev/service-center/internal/progress"
	"github.com/ukydev/service-center/internal/realtime"
	"github.com/ukydev/service-center/internal/risk"
	"github.com/ukydev/service-center/internal/storage"
)

const (
	uploadsDir      = "uploads"
	uploadsURL      = "/uploads"
	sweepInterval   = time.Minute
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("Server stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	client, err := db.ConnectMongo(cfg.MongoURI)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.WithError(err).Warn("Mongo disconnect failed")
		}
	}()
	logger.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")

	store := db.NewStore(client.Database(cfg.MongoDB))
	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := store.EnsureIndexes(indexCtx); err != nil {
		logger.WithError(err).Warn("Failed to ensure indexes")
	}
	cancel()

	hub := realtime.NewHub(logger)
	emitter, closeEmitter := newEmitter(cfg, hub, logger)
	defer closeEmitter()

	counters, closeCounters := newCounterStore(ctx, cfg, logger)
	defer closeCounters()

	files, err := newFileStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	dispatcher := mail.NewDispatcher(newMailSender(cfg, logger), logger)
	defer dispatcher.Wait()

	authService := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	notifier := notify.NewService(store.Notifications, store.Users, emitter, logger)
	monitor := risk.NewMonitor(counters, notifier, cfg.RiskThreshold, cfg.RiskWindow, logger)
	progressService := progress.NewService(store.Progress, store.ProgressEvents, notifier, logger)
	gateway := realtime.NewGateway(hub, authService, store.Users, cfg.CORSOrigins, logger)
	limiter := middleware.NewRateLimitMiddleware()

	deps := handlers.Deps{
		Auth:              authService,
		Users:             store.Users,
		Vehicles:          store.Vehicles,
		Services:          store.Services,
		Appointments:      store.Appointments,
		Modifications:     store.Modifications,
		Progress:          progressService,
		Notify:            notifier,
		Risk:              monitor,
		Mailer:            dispatcher,
		Files:             files,
		Websocket:         gateway.Handle,
		DB:                store,
		RateLimiter:       limiter,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		CORSOrigins:       cfg.CORSOrigins,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		Log:               logger,
	}
	if _, onDisk := files.(*storage.DiskStore); onDisk {
		deps.UploadsDir = uploadsDir
	}
	router := handlers.NewRouter(deps)

	go sweep(ctx, sweepInterval, func() {
		limiter.Sweep(cfg.RateLimitWindow)
		if mem, ok := counters.(*risk.MemoryStore); ok {
			mem.Sweep()
		}
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newEmitter always delivers to local websocket clients and mirrors events
// to MQTT when a broker is configured.
func newEmitter(cfg *config.Config, hub *realtime.Hub, logger logrus.FieldLogger) (realtime.Emitter, func()) {
	if cfg.MQTTBrokerURL == "" {
		return hub, func() {}
	}
	client, err := realtime.ConnectMQTT(cfg.MQTTBrokerURL, cfg.MQTTClientID)
	if err != nil {
		logger.WithError(err).Warn("MQTT unavailable, live events stay local")
		return hub, func() {}
	}
	logger.WithField("broker", cfg.MQTTBrokerURL).Info("Mirroring live events to MQTT")
	return realtime.Fanout{hub, realtime.NewMQTTEmitter(client, cfg.MQTTTopicPrefix)}, func() {
		client.Disconnect(250)
	}
}

// newCounterStore shares failed-login counters through Redis when
// configured, so every API instance sees the same window.
func newCounterStore(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (risk.CounterStore, func()) {
	if cfg.RedisURL == "" {
		return risk.NewMemoryStore(), func() {}
	}
	client, err := risk.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, failed-login counters are per process")
		return risk.NewMemoryStore(), func() {}
	}
	return risk.NewRedisStore(client, "service-center:"), func() {
		_ = client.Close()
	}
}

func newFileStore(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (storage.FileStore, error) {
	if cfg.MinIOEndpoint == "" {
		logger.WithField("dir", uploadsDir).Info("Storing uploads on local disk")
		if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
			return nil, err
		}
		return &storage.DiskStore{Root: uploadsDir, URLPrefix: uploadsURL}, nil
	}
	return storage.NewMinioStore(ctx, storage.MinioConfig{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		Bucket:    cfg.MinIOBucket,
		UseSSL:    cfg.MinIOUseSSL,
		PublicURL: cfg.MinIOPublicURL,
	}, logger)
}

func newMailSender(cfg *config.Config, logger logrus.FieldLogger) mail.Sender {
	if cfg.ResendAPIKey == "" {
		return mail.LogSender{Log: logger}
	}
	return mail.NewResendSender(cfg.ResendAPIKey, cfg.FromEmail)
}

// sweep runs fn every interval until ctx is done.
func sweep(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
