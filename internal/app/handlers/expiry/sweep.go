package expiry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"padicrib/internal/app/handlers/support"
	"padicrib/internal/app/outbox"
	"padicrib/internal/app/policies"
	domainlistings "padicrib/internal/domain/listings"
	"padicrib/internal/domain/shared/events"
)

const (
	sweepKey = "expiry.sweep"

	// DefaultReminderWindow is how far ahead owners are warned of expiry.
	DefaultReminderWindow = 72 * time.Hour
)

// SweepCommand switches off lapsed listings and records pre-expiry reminders.
// Both steps are conditional writes, so overlapping runs are harmless.
type SweepCommand struct{}

func (SweepCommand) Key() string { return sweepKey }

type SweepResult struct {
	Expired  int       `json:"expired"`
	Reminded int       `json:"reminded"`
	Skipped  int       `json:"skipped"`
	RanAt    time.Time `json:"ran_at"`
}

type SweepHandler struct {
	Notifier policies.Notifier
	Window   time.Duration
	Logger   *slog.Logger
	Now      func() time.Time
}

func (h *SweepHandler) Handle(ctx context.Context, _ SweepCommand) (SweepResult, error) {
	unit, err := support.Unit(ctx)
	if err != nil {
		return SweepResult{}, err
	}
	now := support.Now(h.Now)
	result := SweepResult{RanAt: now}

	expired, err := unit.Listings().ExpireDue(ctx, now)
	if err != nil {
		return SweepResult{}, fmt.Errorf("expire listings: %w", err)
	}
	evs := make([]events.DomainEvent, 0, len(expired))
	for _, e := range expired {
		evs = append(evs, e.StatusEvent(now))
		support.NotifyAfterCommit(unit, h.Notifier, policies.Notice{
			ListingID: e.ID,
			OwnerID:   e.OwnerID,
			Body: fmt.Sprintf("Your listing \"%s\" (#%d) expired on %s and is no longer visible. Renew the subscription to reactivate it.",
				e.Title, e.ID, e.PaidUntil.Format("2006-01-02")),
		})
	}
	if err := outbox.Append(ctx, unit.Outbox(), evs...); err != nil {
		return SweepResult{}, err
	}
	result.Expired = len(expired)

	window := h.Window
	if window <= 0 {
		window = DefaultReminderWindow
	}
	due, err := unit.Listings().DueForReminder(ctx, now, window)
	if err != nil {
		return SweepResult{}, fmt.Errorf("find reminders: %w", err)
	}
	for _, l := range due {
		recorded, err := unit.Listings().RecordReminder(ctx, l.ID, domainlistings.PreExpiryReminder(*l.PaidUntil), now)
		if err != nil {
			return SweepResult{}, fmt.Errorf("record reminder for listing %d: %w", l.ID, err)
		}
		if !recorded {
			result.Skipped++
			continue
		}
		result.Reminded++
		support.NotifyAfterCommit(unit, h.Notifier, policies.Notice{
			ListingID: l.ID,
			OwnerID:   l.OwnerID,
			Body: fmt.Sprintf("Your listing \"%s\" (#%d) expires on %s. Renew now to keep it visible.",
				l.Title, l.ID, l.PaidUntil.Format("2006-01-02")),
		})
	}

	support.Logger(h.Logger).InfoContext(ctx, "expiry sweep finished",
		"expired", result.Expired, "reminded", result.Reminded, "skipped", result.Skipped)
	return result, nil
}
