// Package notify delivers registration notifications (expiry warnings, payment
// approval, completion) to an external email relay.
package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Kind names the message template the relay should render.
type Kind string

const (
	KindExpiryWarning         Kind = "expiry-warning"
	KindPaymentApproved       Kind = "payment-approved"
	KindRegistrationCompleted Kind = "registration-completed"
)

var ErrNoRecipient = errors.New("notify: recipient is required")

// Sender delivers one notification. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, kind Kind, recipient string, data map[string]any) error
}

// LogSender only logs. It is used when no relay is configured so the rest of
// the workflow (expiry bookkeeping in particular) behaves as in production.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, kind Kind, recipient string, data map[string]any) error {
	if recipient == "" {
		return ErrNoRecipient
	}
	s.log.Info("notification",
		zap.String("kind", string(kind)),
		zap.String("recipient", recipient),
		zap.Any("data", data),
	)
	return nil
}
