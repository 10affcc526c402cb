package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"padicrib/internal/app/commands"
	expiryapp "padicrib/internal/app/handlers/expiry"
	"padicrib/internal/app/middleware"
	"padicrib/internal/app/notify"
	"padicrib/internal/app/policies"
	"padicrib/internal/app/registry"
	"padicrib/internal/app/services/auth"
	"padicrib/internal/app/uow"
	domainbooking "padicrib/internal/domain/booking"
	domainuser "padicrib/internal/domain/user"
	"padicrib/internal/infra/broker/kafka"
	"padicrib/internal/infra/cache"
	"padicrib/internal/infra/config"
	"padicrib/internal/infra/db/mongo"
	"padicrib/internal/infra/db/postgres"
	ginserver "padicrib/internal/infra/http/gin"
	"padicrib/internal/infra/obs"
	"padicrib/internal/infra/outbox"
	"padicrib/internal/infra/payments/paystack"
	"padicrib/internal/infra/security"
	"padicrib/internal/infra/storage/files"
	"padicrib/internal/infra/storage/memory"
	"padicrib/internal/infra/storage/s3"
	"padicrib/internal/infra/tasks"
)

type application struct {
	logger    *slog.Logger
	store     uow.UoWFactory
	outbox    outbox.Store
	passwords auth.PasswordHasher
	buses     registry.Buses
	handlers  ginserver.Handlers
	health    obs.HealthHandlers

	redis    *redis.Client
	producer outbox.Producer
	closers  []func()
	wg       sync.WaitGroup
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{logger: logger}
	checks := map[string]obs.Check{}

	if err := app.openStorage(ctx, cfg, checks); err != nil {
		app.close()
		return nil, err
	}

	idem, err := app.openIdempotency(ctx, cfg, checks)
	if err != nil {
		app.close()
		return nil, err
	}

	publicFiles, privateFiles, err := app.openFiles(cfg, checks)
	if err != nil {
		app.close()
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		rdb, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			app.close()
			return nil, err
		}
		app.redis = rdb
		app.closers = append(app.closers, func() { _ = rdb.Close() })
		checks["redis"] = cache.Ping(rdb)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, "padicrib", logger)
		if err != nil {
			app.close()
			return nil, err
		}
		app.producer = producer
		app.closers = append(app.closers, func() { _ = producer.Close() })
	} else {
		app.producer = outbox.LogProducer{Logger: logger}
	}

	var gateway policies.PaymentGateway
	if cfg.Paystack.SecretKey != "" {
		gateway = paystack.New(cfg.Paystack.SecretKey, cfg.Paystack.BaseURL, cfg.Paystack.Timeout, logger)
	} else {
		logger.Warn("paystack secret key missing; gateway payments disabled")
	}

	app.passwords = security.BcryptHasher{}
	now := func() time.Time { return time.Now().UTC() }

	app.buses = registry.Build(registry.Deps{
		UoW:         app.store,
		Idempotency: idem,
		Pricing: policies.Pricing{
			FreeListings: cfg.Fees.FreeListings,
			MonthlyFee:   cfg.Fees.Monthly,
			YearlyFee:    cfg.Fees.Yearly,
			AddOns:       domainbooking.AddOnPrices{Laundry: cfg.Fees.Laundry, Food: cfg.Fees.Food},
		},
		Notifier:           &notify.Dispatcher{UoW: app.store, Logger: logger, Now: now},
		Gateway:            gateway,
		Passwords:          app.passwords,
		Images:             publicFiles,
		Documents:          privateFiles,
		VerificationAdmin:  domainuser.ID(cfg.Notifications.VerificationAdminID),
		ListingCallbackURL: cfg.Paystack.CallbackURL,
		BookingCallbackURL: cfg.Paystack.BookingCallback,
		StubPayments:       cfg.Paystack.StubEnabled,
		ReminderWindow:     cfg.Sweep.ReminderWindow,
		Logger:             logger,
		Now:                now,
	})

	logger.Info("buses ready", "routes", len(app.buses.Routes))

	authService := &auth.Service{
		UoW:       app.store,
		Passwords: app.passwords,
		Tokens:    security.JWTIssuer{Secret: []byte(cfg.Auth.SessionSecret), TTL: cfg.Auth.TokenTTL},
		Logger:    logger,
		Now:       now,
	}
	uploads := ginserver.Uploads{
		Public:   publicFiles,
		Private:  privateFiles,
		MaxBytes: cfg.Files.MaxUploadBytes(),
		Logger:   logger,
	}
	commandBus, queryBus := app.buses.Commands, app.buses.Queries

	app.handlers = ginserver.Handlers{
		Auth:     ginserver.AuthHandler{Service: authService, Logger: logger, CookieSecure: cfg.Auth.CookieSecure},
		Listings: ginserver.ListingHandler{Commands: commandBus, Queries: queryBus, Uploads: uploads, Logger: logger},
		Admin:    ginserver.AdminHandler{Commands: commandBus, Queries: queryBus, Verifications: privateFiles, Logger: logger},
		Booking:  ginserver.BookingHandler{Commands: commandBus, Queries: queryBus, Logger: logger},
		Payments: ginserver.PaymentHandler{
			Commands:         commandBus,
			WebhookSecret:    cfg.Paystack.SecretKey,
			CallbackRedirect: cfg.Paystack.CallbackRedirect,
			Logger:           logger,
		},
		Reviews:        ginserver.ReviewHandler{Commands: commandBus, Queries: queryBus, Logger: logger},
		Messages:       ginserver.MessageHandler{Commands: commandBus, Queries: queryBus, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{Service: authService, Logger: logger}.Handle,
	}
	if cfg.S3.Enabled() {
		logger.Info("listing images stored in object storage", "bucket", cfg.S3.Bucket)
	} else {
		app.handlers.PublicRoot = cfg.Files.PublicRoot
	}
	app.health = obs.HealthHandlers{Checks: checks, Timeout: 2 * time.Second}
	return app, nil
}

func (a *application) openStorage(ctx context.Context, cfg config.Config, checks map[string]obs.Check) error {
	if cfg.Postgres.DSN == "" {
		a.logger.Warn("DATABASE_URL not set; using in-memory storage")
		store := memory.NewStore()
		a.store = store
		a.outbox = store.OutboxQueue()
		return nil
	}
	db, err := postgres.Open(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() { _ = db.Close() })
	if cfg.Postgres.AutoSchema {
		if err := postgres.ApplySchema(ctx, db); err != nil {
			return err
		}
	}
	a.store = postgres.NewFactory(db)
	a.outbox = postgres.NewOutboxStore(db)
	checks["postgres"] = db.PingContext
	return nil
}

func (a *application) openIdempotency(ctx context.Context, cfg config.Config, checks map[string]obs.Check) (middleware.IdempotencyStore, error) {
	if cfg.Mongo.URI == "" {
		store := memory.NewIdempotencyStore()
		if cfg.Mongo.IdempotencyTTL > 0 {
			store.TTL = cfg.Mongo.IdempotencyTTL
		}
		return store, nil
	}
	client, err := mongo.Connect(ctx, cfg.Mongo.URI)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = client.Disconnect(context.Background()) })
	checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
	return mongo.NewIdempotencyStore(ctx, client.Database(cfg.Mongo.Database), cfg.Mongo.IdempotencyTTL)
}

// openFiles returns the store for public listing images and the private
// store for identity documents. Identity documents never leave local disk.
func (a *application) openFiles(cfg config.Config, checks map[string]obs.Check) (policies.FileStore, *files.Store, error) {
	private, err := files.New(cfg.Files.PrivateRoot, "")
	if err != nil {
		return nil, nil, err
	}
	if cfg.S3.Enabled() {
		images, err := s3.NewImageStore(s3.Options{
			Endpoint:      cfg.S3.Endpoint,
			UseSSL:        cfg.S3.UseSSL,
			AccessKey:     cfg.S3.AccessKey,
			SecretKey:     cfg.S3.SecretKey,
			Bucket:        cfg.S3.Bucket,
			PublicBaseURL: cfg.S3.PublicBaseURL,
		}, a.logger)
		if err != nil {
			return nil, nil, err
		}
		checks["s3"] = images.Ping
		return images, private, nil
	}
	public, err := files.New(cfg.Files.PublicRoot, ginserver.PublicUploadsPrefix)
	if err != nil {
		return nil, nil, err
	}
	return public, private, nil
}

// bootstrapAdmin creates the configured admin account when it does not exist yet.
func (a *application) bootstrapAdmin(ctx context.Context, cfg config.Auth) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	unit, err := a.store.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = unit.Rollback(ctx) }()

	_, err = unit.Users().ByEmail(ctx, domainuser.NormalizeEmail(cfg.AdminEmail))
	if err == nil {
		return nil
	}
	if !errors.Is(err, domainuser.ErrNotFound) {
		return err
	}
	hash, err := a.passwords.Hash(cfg.AdminPassword)
	if err != nil {
		return err
	}
	admin, err := domainuser.NewUser(domainuser.CreateParams{
		Name:         cfg.AdminName,
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         domainuser.RoleAdmin,
		Now:          time.Now(),
	})
	if err != nil {
		return err
	}
	if err := unit.Users().Create(ctx, admin); err != nil {
		return err
	}
	if err := unit.Commit(ctx); err != nil {
		return err
	}
	a.logger.Info("admin account created", "user_id", admin.ID, "email", admin.Email)
	return nil
}

// startBackground launches the outbox relay and the expiry sweep. Both stop
// when ctx is cancelled; wait blocks until they have.
func (a *application) startBackground(ctx context.Context, cfg config.Config) {
	worker := &outbox.Worker{
		Store:       a.outbox,
		Producer:    a.producer,
		Logger:      a.logger,
		Interval:    cfg.Outbox.PollInterval,
		TopicPrefix: cfg.Kafka.TopicPrefix,
		Source:      "padicrib",
		Backoff:     cfg.Outbox.Backoff,
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("outbox worker stopped", "error", err)
		}
	}()

	processor := &tasks.Processor{
		Sweep: func(ctx context.Context) error {
			res, err := commands.Dispatch[expiryapp.SweepCommand, expiryapp.SweepResult](ctx, a.buses.Commands, expiryapp.SweepCommand{})
			if err != nil {
				return err
			}
			a.logger.InfoContext(ctx, "expiry sweep finished", "expired", res.Expired, "reminded", res.Reminded)
			return nil
		},
		Logger: a.logger,
	}

	if a.redis == nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			tasks.RunTicker(ctx, cfg.Sweep.Interval, processor)
		}()
		return
	}

	processor.Lock = cache.Locker{Client: a.redis, Prefix: "padicrib:lock:"}
	if err := a.startQueue(ctx, cfg, processor); err != nil {
		a.logger.Error("task queue unavailable; falling back to ticker", "error", err)
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			tasks.RunTicker(ctx, cfg.Sweep.Interval, processor)
		}()
	}
}

func (a *application) startQueue(ctx context.Context, cfg config.Config, processor *tasks.Processor) error {
	opt := tasks.RedisOpt(a.redis)
	cron := cfg.Sweep.Cron
	if cron == "" {
		cron = tasks.DefaultSweepCron
	}
	scheduler, err := tasks.NewScheduler(opt, cron, a.logger)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	server := tasks.NewServer(opt, a.logger)
	if err := server.Start(tasks.NewMux(processor)); err != nil {
		return fmt.Errorf("task server: %w", err)
	}
	if err := scheduler.Start(); err != nil {
		server.Shutdown()
		return fmt.Errorf("scheduler: %w", err)
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		<-ctx.Done()
		stopQueue(scheduler, server)
	}()
	return nil
}

func stopQueue(scheduler *asynq.Scheduler, server *asynq.Server) {
	scheduler.Shutdown()
	server.Shutdown()
}

func (a *application) wait() {
	a.wg.Wait()
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
