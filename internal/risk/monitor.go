package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/service-center/internal/models"
	"github.com/ukydev/service-center/internal/notify"
)

// Defaults for the failed-login monitor.
const (
	DefaultThreshold = 5
	DefaultWindow    = 15 * time.Minute
)

// AdminNotifier alerts every admin.
type AdminNotifier interface {
	NotifyAdmins(ctx context.Context, p notify.Params) ([]*models.Notification, error)
}

// Monitor counts failed logins per source and alerts admins when a source
// reaches the threshold within one window.
type Monitor struct {
	store     CounterStore
	notifier  AdminNotifier
	threshold int64
	window    time.Duration
	log       logrus.FieldLogger
}

// NewMonitor creates a monitor. Non-positive threshold or window fall back
// to the defaults.
func NewMonitor(store CounterStore, notifier AdminNotifier, threshold int, window time.Duration, log logrus.FieldLogger) *Monitor {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Monitor{
		store:     store,
		notifier:  notifier,
		threshold: int64(threshold),
		window:    window,
		log:       log,
	}
}

func counterKey(source string) string {
	return "failed_login:" + source
}

// RecordFailedAttempt counts one failure from source and reports whether it
// triggered an alert. On a breach the counter is reset before admins are
// notified, so the next alert needs another full threshold. Failures here
// are logged and never surface to the login caller.
func (m *Monitor) RecordFailedAttempt(ctx context.Context, source string) bool {
	key := counterKey(source)
	entry := m.log.WithField("source", source)

	count, err := m.store.Incr(ctx, key, m.window)
	if err != nil {
		entry.WithError(err).Error("failed to record login failure")
		return false
	}
	if count < m.threshold {
		return false
	}

	if err := m.store.Reset(ctx, key); err != nil {
		entry.WithError(err).Error("failed to reset login failure counter")
	}

	entry.WithField("attempts", count).Warn("failed login threshold reached")

	_, err = m.notifier.NotifyAdmins(ctx, notify.Params{
		Type:     models.NotifFailedLogin,
		Title:    "Multiple failed login attempts",
		Message:  fmt.Sprintf("%d failed login attempts from %s within %s", count, source, m.window),
		Severity: models.SeverityHigh,
		Metadata: map[string]interface{}{
			"ip":       source,
			"attempts": count,
		},
	})
	if err != nil {
		entry.WithError(err).Error("failed to notify admins of failed logins")
	}
	return true
}
