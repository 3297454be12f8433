package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	mail "github.com/wneessen/go-mail"

	"taskpulse/domain"
)

// DefaultTimeout bounds the SMTP dial and send for a single reminder.
const DefaultTimeout = 10 * time.Second

// Config holds the mail transport settings for reminder delivery.
type Config struct {
	Host      string
	Port      int
	Username  string
	Password  string
	Sender    string
	Recipient string
	Timeout   time.Duration
}

// Mailer sends due-date reminders to a fixed recipient over authenticated
// SMTP.
type Mailer struct {
	client    *mail.Client
	sender    string
	recipient string
	logger    *log.Logger
}

// NewMailer creates a Mailer from the given transport configuration.
func NewMailer(cfg Config, logger *log.Logger) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("notify: mail host is required")
	}
	if cfg.Sender == "" || cfg.Recipient == "" {
		return nil, errors.New("notify: sender and recipient are required")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	opts := []mail.Option{
		mail.WithTimeout(timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("notify: mail client: %w", err)
	}
	return &Mailer{
		client:    client,
		sender:    cfg.Sender,
		recipient: cfg.Recipient,
		logger:    logger,
	}, nil
}

// Notify sends a reminder for the task. It returns true only when the
// transport accepted the message; every failure is logged and reported as
// false. Notify never mutates the task.
func (m *Mailer) Notify(ctx context.Context, t domain.Task) bool {
	msg, err := m.buildReminder(t)
	if err != nil {
		m.logger.WithError(err).Errorf("notify: build reminder for task %d failed", t.ID)
		return false
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		m.logger.WithError(err).Errorf("notify: send reminder for task %d failed", t.ID)
		return false
	}
	m.logger.Infof("notify: reminder sent for task %d (%s)", t.ID, t.Title)
	return true
}

func (m *Mailer) buildReminder(t domain.Task) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.sender); err != nil {
		return nil, err
	}
	if err := msg.To(m.recipient); err != nil {
		return nil, err
	}
	msg.Subject(reminderSubject(t))
	msg.SetBodyString(mail.TypeTextPlain, reminderBody(t))
	return msg, nil
}

func reminderSubject(t domain.Task) string {
	return "Task reminder: " + t.Title
}

func reminderBody(t domain.Task) string {
	return fmt.Sprintf(`Task: %s
Category: %s
Description: %s
Due date: %s
Priority: %s

Don't forget to complete this task!
`, t.Title, t.Category, t.Description, t.DueDate.Format("2006-01-02 15:04:05"), t.Priority)
}
