package mailer

import (
	"context"
	"errors"
	"strings"

	"github.com/procurehub/backend/pkg/logger"
)

// Message is a plain-text email.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Mailer delivers messages to an email provider.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the structured log instead of delivering them.
// Used in dev and as the default until a provider is wired up.
type LogMailer struct {
	logg *logger.Logger
}

func NewLogMailer(logg *logger.Logger) *LogMailer {
	return &LogMailer{logg: logg}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return errors.New("at least one recipient is required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return errors.New("subject is required")
	}
	if m.logg != nil {
		fields := map[string]any{
			"to":      strings.Join(msg.To, ","),
			"subject": msg.Subject,
		}
		m.logg.Info(m.logg.WithFields(ctx, fields), "email delivered to log sink")
	}
	return nil
}
