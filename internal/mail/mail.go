package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"sync"
	"time"

	"github.com/resend/resend-go/v3"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/service-center/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

const sendTimeout = 30 * time.Second

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ResendSender delivers through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender creates a sender for the given API key.
func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

// Send implements Sender. The Resend client applies its own HTTP timeout.
func (s *ResendSender) Send(_ context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}
	if _, err := s.client.Emails.Send(params); err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

// LogSender only logs; used when no email provider is configured.
type LogSender struct {
	Log logrus.FieldLogger
}

// Send implements Sender.
func (s LogSender) Send(_ context.Context, msg Message) error {
	s.Log.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).Info("email delivery disabled, message dropped")
	return nil
}

// Dispatcher sends email in the background. Failures are logged and never
// reach the caller.
type Dispatcher struct {
	sender Sender
	log    logrus.FieldLogger
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher around a sender.
func NewDispatcher(sender Sender, log logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{sender: sender, log: log}
}

// SendAsync queues msg for delivery and returns immediately.
func (d *Dispatcher) SendAsync(msg Message) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := d.sender.Send(ctx, msg); err != nil {
			d.log.WithError(err).WithFields(logrus.Fields{
				"to":      msg.To,
				"subject": msg.Subject,
			}).Error("failed to send email")
		}
	}()
}

// Wait blocks until every queued message has been attempted.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func render(name string, data interface{}) (string, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}
	var body bytes.Buffer
	if err := tmpl.ExecuteTemplate(&body, "layout.html", data); err != nil {
		return "", fmt.Errorf("render email template %s: %w", name, err)
	}
	return body.String(), nil
}

// AppointmentConfirmed builds the confirmation email for a booking.
func AppointmentConfirmed(appt *models.Appointment) (Message, error) {
	data := struct {
		Title       string
		Name        string
		ServiceType string
		Date        string
		TimeSlot    string
		Vehicle     string
		PlateNumber string
	}{
		Title:       "Appointment Confirmed",
		Name:        appt.ContactName,
		ServiceType: appt.ServiceType,
		Date:        appt.Date.Format("Monday, 02 Jan 2006"),
		TimeSlot:    appt.TimeSlot,
		Vehicle:     fmt.Sprintf("%s %s", appt.VehicleMake, appt.VehicleModel),
		PlateNumber: appt.PlateNumber,
	}

	html, err := render("appointment_confirmed.html", data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      appt.ContactEmail,
		Subject: "Your service appointment is confirmed",
		HTML:    html,
	}, nil
}
