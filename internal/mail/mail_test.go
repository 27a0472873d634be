package mail

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/service-center/internal/models"
)

type captureSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (s *captureSender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

func testAppointment() *models.Appointment {
	return &models.Appointment{
		ContactName:  "Kasun <Silva>",
		ContactEmail: "kasun@example.com",
		ServiceType:  "Full Service",
		VehicleMake:  "Toyota",
		VehicleModel: "Aqua",
		PlateNumber:  "CAB-1234",
		Date:         time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		TimeSlot:     "09:00",
	}
}

func TestAppointmentConfirmed(t *testing.T) {
	msg, err := AppointmentConfirmed(testAppointment())
	require.NoError(t, err)

	assert.Equal(t, "kasun@example.com", msg.To)
	assert.Equal(t, "Your service appointment is confirmed", msg.Subject)
	assert.Contains(t, msg.HTML, "Appointment Confirmed")
	assert.Contains(t, msg.HTML, "Full Service")
	assert.Contains(t, msg.HTML, "Monday, 04 Mar 2024")
	assert.Contains(t, msg.HTML, "Toyota Aqua (CAB-1234)")
	assert.Contains(t, msg.HTML, "Kasun &lt;Silva&gt;")
}

func TestDispatcher_SendAsync(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sender := &captureSender{}
	d := NewDispatcher(sender, logger)

	d.SendAsync(Message{To: "a@example.com", Subject: "one"})
	d.SendAsync(Message{To: "b@example.com", Subject: "two"})
	d.Wait()

	assert.Len(t, sender.sent, 2)
	assert.Empty(t, hook.AllEntries())
}

func TestDispatcher_FailureIsLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sender := &captureSender{err: errors.New("provider down")}
	d := NewDispatcher(sender, logger)

	d.SendAsync(Message{To: "a@example.com", Subject: "one"})
	d.Wait()

	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "a@example.com", hook.LastEntry().Data["to"])
}

func TestLogSender(t *testing.T) {
	logger, hook := test.NewNullLogger()
	require.NoError(t, LogSender{Log: logger}.Send(context.Background(), Message{To: "x@example.com"}))
	assert.Len(t, hook.AllEntries(), 1)
}
