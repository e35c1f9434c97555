// Package messaging delivers outbound replies.
package messaging

import (
	"context"
	"errors"

	"finbot/internal/log"
)

// ErrDailyLimit means the provider refused the message because the daily
// quota is spent. It is not worth retrying.
var ErrDailyLimit = errors.New("daily message limit reached")

type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// LogSender only logs what it would send. Used when no provider is configured.
type LogSender struct {
	logger *log.Logger
}

func NewLogSender(logger *log.Logger) *LogSender {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LogSender{logger: logger.WithComponent(log.ComponentMessaging)}
}

func (s *LogSender) Send(ctx context.Context, to, body string) error {
	s.logger.InfoContext(ctx, "Outbound message", log.FieldProfileID, to, "body", body)
	return nil
}

// split cuts body into chunks of at most limit runes, preferring line breaks.
func split(body string, limit int) []string {
	var parts []string
	runes := []rune(body)
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > 0; i-- {
			if runes[i] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
		for len(runes) > 0 && runes[0] == '\n' {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 || len(parts) == 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
