package support

import (
	"context"
	"log/slog"
	"time"

	"padicrib/internal/app/outbox"
	"padicrib/internal/app/policies"
	"padicrib/internal/app/uow"
	"padicrib/internal/domain/shared/events"
)

// EventSource is an aggregate with an event recorder.
type EventSource interface {
	Drain() []events.DomainEvent
}

// RecordEvents moves pending aggregate events into the unit's outbox.
func RecordEvents(ctx context.Context, unit uow.UnitOfWork, sources ...EventSource) error {
	var pending []events.DomainEvent
	for _, src := range sources {
		pending = append(pending, src.Drain()...)
	}
	return outbox.Append(ctx, unit.Outbox(), pending...)
}

// NotifyAfterCommit queues a notice that is only delivered if the unit commits.
func NotifyAfterCommit(unit uow.UnitOfWork, notifier policies.Notifier, notice policies.Notice) {
	if notifier == nil {
		return
	}
	unit.AfterCommit(func(ctx context.Context) {
		notifier.Notify(ctx, notice)
	})
}

// RemoveAfterCommit unlinks files once the rows referencing them are gone.
func RemoveAfterCommit(unit uow.UnitOfWork, files policies.FileRemover, logger *slog.Logger, paths ...string) {
	if files == nil || len(paths) == 0 {
		return
	}
	unit.AfterCommit(func(ctx context.Context) {
		for _, p := range paths {
			if p == "" {
				continue
			}
			if err := files.Remove(ctx, p); err != nil {
				Logger(logger).WarnContext(ctx, "file cleanup failed", "path", p, "error", err)
			}
		}
	})
}

func Logger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

func Now(clock func() time.Time) time.Time {
	if clock != nil {
		return clock().UTC()
	}
	return time.Now().UTC()
}
