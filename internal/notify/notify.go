// Package notify delivers notifications to library users.
package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"
)

// Notifier sends a message to an address. Delivery is not guaranteed; a nil
// error only means the message was handed over.
type Notifier interface {
	Send(ctx context.Context, address, subject, body string) error
}

// LogNotifier stands in for a mail transport: it writes every message to the
// log. Sends are throttled to at most one per interval.
type LogNotifier struct {
	logger  *log.Logger
	limiter *rate.Limiter
}

// NewLogNotifier returns a LogNotifier writing to logger, or to the standard
// logger when logger is nil. A non-positive interval disables throttling.
func NewLogNotifier(logger *log.Logger, interval time.Duration) *LogNotifier {
	if logger == nil {
		logger = log.Default()
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &LogNotifier{
		logger:  logger,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (n *LogNotifier) Send(ctx context.Context, address, subject, body string) error {
	if address == "" {
		return fmt.Errorf("send notification: empty address")
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send notification to %s: %w", address, err)
	}

	n.logger.Printf("[INFO] Send: sending email to %s", address)
	n.logger.Printf("[INFO] Send: subject: %s", subject)
	n.logger.Printf("[INFO] Send: body: %s", body)
	n.logger.Printf("[INFO] Send: email sent to %s at %s", address, time.Now().Format(time.RFC3339))
	return nil
}
