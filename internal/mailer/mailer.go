// Package mailer defines the outbound mail contract used for password-reset
// links. Delivery is a deployment concern; the default sender only logs.
package mailer

import (
	"context"
	"log/slog"
	"os"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender records outbound mail on the logger instead of delivering it.
// Useful for development and tests.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.Info("mail sent",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.Int("body_bytes", len(body)),
	)
	return nil
}
