// Package tasks runs the periodic expiry sweep on asynq, with an in-process
// ticker for deployments without Redis.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	TypeExpirySweep = "expiry:sweep"

	// DefaultSweepCron runs the sweep every fifteen minutes.
	DefaultSweepCron = "*/15 * * * *"

	sweepLock = "expiry-sweep"
)

// SweepFunc runs one expiry sweep.
type SweepFunc func(ctx context.Context) error

// Locker serialises sweeps across instances. Acquire reports false when the
// lock is held elsewhere.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context), bool, error)
}

// Processor handles sweep tasks.
type Processor struct {
	Sweep   SweepFunc
	Lock    Locker
	LockTTL time.Duration
	Logger  *slog.Logger
}

func NewSweepTask() *asynq.Task {
	return asynq.NewTask(TypeExpirySweep, nil, asynq.MaxRetry(3), asynq.Timeout(5*time.Minute))
}

func (p *Processor) HandleSweepTask(ctx context.Context, t *asynq.Task) error {
	if p.Sweep == nil {
		return fmt.Errorf("tasks: sweep not configured: %w", asynq.SkipRetry)
	}
	return p.Run(ctx)
}

// Run executes one sweep unless another instance already holds the lock.
func (p *Processor) Run(ctx context.Context) error {
	if p.Lock != nil {
		release, ok, err := p.Lock.Acquire(ctx, sweepLock, p.lockTTL())
		if err != nil {
			return err
		}
		if !ok {
			p.logger().InfoContext(ctx, "expiry sweep already running elsewhere")
			return nil
		}
		defer release(context.WithoutCancel(ctx))
	}
	start := time.Now()
	if err := p.Sweep(ctx); err != nil {
		p.logger().ErrorContext(ctx, "expiry sweep failed", "error", err)
		return err
	}
	p.logger().DebugContext(ctx, "expiry sweep finished", "elapsed", time.Since(start))
	return nil
}

func (p *Processor) lockTTL() time.Duration {
	if p.LockTTL > 0 {
		return p.LockTTL
	}
	return 5 * time.Minute
}

func (p *Processor) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func NewMux(p *Processor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeExpirySweep, p.HandleSweepTask)
	return mux
}

// RedisOpt derives asynq connection options from an existing client.
func RedisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	o := rdb.Options()
	return asynq.RedisClientOpt{Addr: o.Addr, Password: o.Password, DB: o.DB}
}

func NewServer(opt asynq.RedisConnOpt, logger *slog.Logger) *asynq.Server {
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: 2,
		Queues:      map[string]int{"default": 1},
		Logger:      slogAdapter{logger},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.ErrorContext(ctx, "task failed", "type", task.Type(), "error", err)
		}),
	})
}

// NewScheduler enqueues the sweep on cronspec. Unique keeps a slow sweep from
// piling up duplicates.
func NewScheduler(opt asynq.RedisConnOpt, cronspec string, logger *slog.Logger) (*asynq.Scheduler, error) {
	if cronspec == "" {
		cronspec = DefaultSweepCron
	}
	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Logger:   slogAdapter{logger},
		Location: time.UTC,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
				logger.Warn("sweep enqueue failed", "error", err)
			}
		},
	})
	if _, err := s.Register(cronspec, NewSweepTask(), asynq.Unique(10*time.Minute)); err != nil {
		return nil, fmt.Errorf("tasks: register sweep %q: %w", cronspec, err)
	}
	return s, nil
}

// RunTicker sweeps once immediately and then on every tick until ctx ends.
func RunTicker(ctx context.Context, interval time.Duration, p *Processor) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	_ = p.Run(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = p.Run(ctx)
		}
	}
}

// slogAdapter satisfies asynq.Logger.
type slogAdapter struct{ l *slog.Logger }

func (a slogAdapter) logger() *slog.Logger {
	if a.l != nil {
		return a.l
	}
	return slog.Default()
}

func (a slogAdapter) Debug(args ...any) { a.logger().Debug(fmt.Sprint(args...), "component", "asynq") }
func (a slogAdapter) Info(args ...any)  { a.logger().Info(fmt.Sprint(args...), "component", "asynq") }
func (a slogAdapter) Warn(args ...any)  { a.logger().Warn(fmt.Sprint(args...), "component", "asynq") }
func (a slogAdapter) Error(args ...any) { a.logger().Error(fmt.Sprint(args...), "component", "asynq") }

func (a slogAdapter) Fatal(args ...any) {
	a.logger().Error(fmt.Sprint(args...), "component", "asynq")
	os.Exit(1)
}
