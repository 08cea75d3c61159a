package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender writes notifications to the structured log instead of an
// external gateway. Deployments without a configured email or SMS
// provider run on it; the dashboard feed consumes the log stream.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) SendEmail(_ context.Context, to, subject, body string) error {
	s.log.Info().
		Str("channel", "email").
		Str("to", to).
		Str("subject", subject).
		Str("body", body).
		Msg("notification")
	return nil
}

func (s *LogSender) SendSMS(_ context.Context, to, body string) error {
	s.log.Info().
		Str("channel", "sms").
		Str("to", to).
		Str("body", body).
		Msg("notification")
	return nil
}

func (s *LogSender) Publish(_ context.Context, recipient, subject, body string, priority Priority) error {
	s.log.Info().
		Str("channel", "dashboard").
		Str("recipient", recipient).
		Str("subject", subject).
		Str("body", body).
		Str("priority", string(priority)).
		Msg("notification")
	return nil
}
