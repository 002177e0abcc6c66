// Package expiry decides whether a registration's expiry warning is due today
// and sends it at most once per calendar day.
package expiry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"incorpapi/internal/model"
	"incorpapi/internal/notify"
)

// Status is the result class of a CheckAndNotify call.
type Status string

const (
	NotDue           Status = "not_due"
	AlreadySentToday Status = "already_sent_today"
	Sent             Status = "sent"
	Failed           Status = "failed"
)

// Outcome of one check. Reason is set for Failed.
type Outcome struct {
	Status Status
	Reason string
}

// Store is the persistence the notifier needs. ClaimExpiryDispatch is the guard
// that makes concurrent callers send at most once per day: only the caller whose
// claim lands sends.
type Store interface {
	ClaimExpiryDispatch(ctx context.Context, id string, at, dayStart time.Time) (prev *time.Time, claimed bool, err error)
	ReleaseExpiryDispatch(ctx context.Context, id string, at time.Time, prev *time.Time) error
	MarkExpiryNotified(ctx context.Context, id string, at time.Time) (int64, error)
}

// Notifier runs the due check. The zero value is not usable; use NewNotifier.
type Notifier struct {
	store   Store
	sender  notify.Sender
	log     *zap.Logger
	lock    DispatchLock
	metrics *Metrics
	now     func() time.Time
	loc     *time.Location
}

type Option func(*Notifier)

// WithLock adds a cache-level daily claim in front of the store claim, so most
// duplicate attempts stop before touching the row.
func WithLock(l DispatchLock) Option { return func(n *Notifier) { n.lock = l } }

func WithMetrics(m *Metrics) Option { return func(n *Notifier) { n.metrics = m } }

func WithClock(now func() time.Time) Option { return func(n *Notifier) { n.now = now } }

// WithLocation sets the timezone whose calendar day is "today". Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(n *Notifier) {
		if loc != nil {
			n.loc = loc
		}
	}
}

func NewNotifier(store Store, sender notify.Sender, log *zap.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		store:  store,
		sender: sender,
		log:    log,
		now:    time.Now,
		loc:    time.UTC,
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Today returns midnight of the current calendar day in the notifier's timezone.
func (n *Notifier) Today() time.Time {
	now := n.now().In(n.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, n.loc)
}

// Due reports whether reg counts as expired today.
func (n *Notifier) Due(reg *model.Registration) bool {
	if reg.IsExpired {
		return true
	}
	if reg.ExpireDate == nil {
		return false
	}
	return civil(reg.ExpireDate.UTC()).Before(civil(n.now().In(n.loc)))
}

func (n *Notifier) sentToday(reg *model.Registration) bool {
	if reg.ExpiryNotificationSentAt == nil {
		return false
	}
	return civil(reg.ExpiryNotificationSentAt.In(n.loc)).Equal(civil(n.now().In(n.loc)))
}

// CheckAndNotify sends the expiry warning for reg if it is due and has not been
// sent today. The dispatch time is claimed on the row before sending, so callers
// holding stale copies cannot both send. On success the expired flag is persisted
// and reg is updated in place. A failed send restores the previous dispatch time
// so the warning stays due.
func (n *Notifier) CheckAndNotify(ctx context.Context, reg *model.Registration) Outcome {
	out := n.check(ctx, reg)
	if n.metrics != nil {
		n.metrics.observe(out.Status)
	}
	if out.Status == Failed {
		n.log.Warn("expiry notification failed",
			zap.String("registration_id", reg.ID),
			zap.String("reason", out.Reason),
		)
	}
	return out
}

func (n *Notifier) check(ctx context.Context, reg *model.Registration) Outcome {
	if !n.Due(reg) {
		return Outcome{Status: NotDue}
	}
	if n.sentToday(reg) {
		return Outcome{Status: AlreadySentToday}
	}
	recipient := reg.Contact.Email
	if recipient == "" {
		return Outcome{Status: Failed, Reason: "no notifiable address"}
	}

	today := n.Today()
	day := today.Format(time.DateOnly)
	if n.lock != nil {
		claimed, err := n.lock.Claim(ctx, reg.ID, day)
		switch {
		case err != nil:
			// The store claim still holds; carry on without the cache.
			n.log.Warn("expiry claim unavailable", zap.String("registration_id", reg.ID), zap.Error(err))
		case !claimed:
			return Outcome{Status: AlreadySentToday}
		}
	}

	// Postgres keeps microseconds; the release matches on this exact value.
	at := n.now().UTC().Truncate(time.Microsecond)
	prev, claimed, err := n.store.ClaimExpiryDispatch(ctx, reg.ID, at, today)
	if err != nil {
		n.releaseLock(ctx, reg.ID, day)
		return Outcome{Status: Failed, Reason: fmt.Sprintf("claim dispatch: %v", err)}
	}
	if !claimed {
		return Outcome{Status: AlreadySentToday}
	}

	data := map[string]any{
		"registrationId": reg.ID,
		"name":           reg.Contact.Name,
		"currentStep":    string(reg.CurrentStep),
	}
	if reg.ExpireDate != nil {
		data["expireDate"] = reg.ExpireDate.Format(time.DateOnly)
	}
	if err := n.sender.Send(ctx, notify.KindExpiryWarning, recipient, data); err != nil {
		if rerr := n.store.ReleaseExpiryDispatch(ctx, reg.ID, at, prev); rerr != nil {
			n.log.Error("restore expiry dispatch", zap.String("registration_id", reg.ID), zap.Error(rerr))
		}
		n.releaseLock(ctx, reg.ID, day)
		return Outcome{Status: Failed, Reason: err.Error()}
	}

	affected, err := n.store.MarkExpiryNotified(ctx, reg.ID, at)
	if err != nil {
		// Sent and claimed; only the expired flag is missing.
		return Outcome{Status: Failed, Reason: fmt.Sprintf("record dispatch: %v", err)}
	}
	if affected == 0 {
		n.log.Warn("expiry notification sent for missing registration", zap.String("registration_id", reg.ID))
	}
	reg.IsExpired = true
	reg.ExpiryNotificationSentAt = &at
	return Outcome{Status: Sent}
}

func (n *Notifier) releaseLock(ctx context.Context, id, day string) {
	if n.lock == nil {
		return
	}
	if err := n.lock.Release(ctx, id, day); err != nil {
		n.log.Warn("release expiry claim", zap.String("registration_id", id), zap.Error(err))
	}
}

func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
