package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"padicrib/internal/domain/shared/money"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env           string
	HTTP          HTTP
	Postgres      Postgres
	Mongo         Mongo
	Kafka         Kafka
	Redis         Redis
	S3            S3
	Files         Files
	Auth          Auth
	Fees          Fees
	Paystack      Paystack
	Sweep         Sweep
	Notifications Notifications
	Outbox        Outbox
}

type HTTP struct {
	Addr            string
	AllowedOrigins  []string
	GinMode         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Postgres struct {
	DSN        string
	MaxConns   int
	AutoSchema bool
}

type Mongo struct {
	URI            string
	Database       string
	IdempotencyTTL time.Duration
}

type Kafka struct {
	Brokers     []string
	TopicPrefix string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type S3 struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

func (s S3) Enabled() bool { return s.Endpoint != "" && s.Bucket != "" }

type Files struct {
	PublicRoot  string
	PrivateRoot string
	MaxUploadMB int64
}

func (f Files) MaxUploadBytes() int64 { return f.MaxUploadMB << 20 }

type Auth struct {
	SessionSecret string
	TokenTTL      time.Duration
	CookieSecure  bool
	// Admin* seed the first admin account at startup when both are set.
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

type Fees struct {
	FreeListings int
	Monthly      money.Money
	Yearly       money.Money
	Laundry      money.Money
	Food         money.Money
	Currency     string
}

type Paystack struct {
	SecretKey        string
	BaseURL          string
	CallbackURL      string
	BookingCallback  string
	CallbackRedirect string
	Timeout          time.Duration
	StubEnabled      bool
}

type Sweep struct {
	Cron           string
	Interval       time.Duration
	ReminderWindow time.Duration
}

type Notifications struct {
	// VerificationAdminID receives verification threads; zero means the first admin.
	VerificationAdminID int64
}

type Outbox struct {
	PollInterval time.Duration
	Backoff      []time.Duration
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	return LoadFiles(".env")
}

// LoadFiles is Load with explicit dotenv files; missing files are skipped.
func LoadFiles(files ...string) (Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	p := &parser{}
	cfg := Config{
		Env: getEnv("APP_ENV", "dev"),
		HTTP: HTTP{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			AllowedOrigins:  p.list("CORS_ORIGINS", "http://localhost:3000"),
			GinMode:         getEnv("GIN_MODE", ""),
			ReadTimeout:     p.duration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    p.duration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: p.duration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: Postgres{
			DSN:        os.Getenv("DATABASE_URL"),
			MaxConns:   p.integer("DB_MAX_CONNS", 10),
			AutoSchema: p.boolean("DB_AUTO_SCHEMA", false),
		},
		Mongo: Mongo{
			URI:            os.Getenv("MONGO_URI"),
			Database:       getEnv("MONGO_DB", "padicrib"),
			IdempotencyTTL: p.duration("IDEMP_TTL", 168*time.Hour),
		},
		Kafka: Kafka{
			Brokers:     p.list("KAFKA_BROKERS", ""),
			TopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		},
		Redis: Redis{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       p.integer("REDIS_DB", 0),
		},
		S3: S3{
			Endpoint:      os.Getenv("S3_ENDPOINT"),
			AccessKey:     os.Getenv("S3_ACCESS_KEY"),
			SecretKey:     os.Getenv("S3_SECRET_KEY"),
			Bucket:        os.Getenv("S3_BUCKET"),
			UseSSL:        p.boolean("S3_USE_SSL", false),
			PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
		},
		Files: Files{
			PublicRoot:  getEnv("UPLOADS_PUBLIC_DIR", "public/uploads"),
			PrivateRoot: getEnv("UPLOADS_PRIVATE_DIR", "private/verifications"),
			MaxUploadMB: int64(p.integer("MAX_UPLOAD_MB", 5)),
		},
		Auth: Auth{
			SessionSecret: os.Getenv("SESSION_SECRET"),
			TokenTTL:      p.duration("SESSION_TTL", 7*24*time.Hour),
			CookieSecure:  p.boolean("COOKIE_SECURE", false),
			AdminName:     getEnv("ADMIN_NAME", "Administrator"),
			AdminEmail:    os.Getenv("ADMIN_EMAIL"),
			AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		},
		Paystack: Paystack{
			SecretKey:        os.Getenv("PAYSTACK_SECRET_KEY"),
			BaseURL:          getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
			CallbackURL:      os.Getenv("PAYSTACK_CALLBACK_URL"),
			BookingCallback:  os.Getenv("PAYSTACK_BOOKING_CALLBACK_URL"),
			CallbackRedirect: os.Getenv("PAYMENTS_CALLBACK_REDIRECT"),
			Timeout:          p.duration("PAYSTACK_TIMEOUT", 15*time.Second),
			StubEnabled:      p.boolean("PAYMENTS_STUB_ENABLED", false),
		},
		Sweep: Sweep{
			Cron:           getEnv("SWEEP_CRON", "*/15 * * * *"),
			Interval:       p.duration("SWEEP_INTERVAL", 15*time.Minute),
			ReminderWindow: p.duration("REMINDER_WINDOW", 72*time.Hour),
		},
		Notifications: Notifications{
			VerificationAdminID: int64(p.integer("VERIFICATION_ADMIN_ID", 0)),
		},
		Outbox: Outbox{
			PollInterval: p.duration("OUTBOX_POLL_INTERVAL", time.Second),
			Backoff:      p.durations("RETRY_BACKOFF", "1s,5s,30s"),
		},
	}
	cfg.Fees = p.fees()
	if p.err != nil {
		return Config{}, p.err
	}
	if cfg.Auth.SessionSecret == "" {
		if cfg.Env != "dev" && cfg.Env != "local" && cfg.Env != "test" {
			return Config{}, errors.New("config: SESSION_SECRET is required")
		}
		cfg.Auth.SessionSecret = "padicrib-dev-secret"
	}
	return cfg, nil
}

// parser keeps the first error so Load can read every value in one pass.
type parser struct {
	err error
}

func (p *parser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *parser) fees() Fees {
	currency := strings.ToUpper(getEnv("CURRENCY", money.DefaultCurrency))
	f := Fees{FreeListings: p.integer("FREE_LISTINGS", 2), Currency: currency}

	monthlyRaw := getEnv("LISTING_FEE_MONTHLY", getEnv("LISTING_FEE", "5000"))
	f.Monthly = p.amount("LISTING_FEE_MONTHLY", monthlyRaw, currency)
	if raw := os.Getenv("LISTING_FEE_YEARLY"); raw != "" {
		f.Yearly = p.amount("LISTING_FEE_YEARLY", raw, currency)
	} else {
		f.Yearly = f.Monthly.Multiply(12)
	}
	f.Laundry = p.amount("LAUNDRY_PRICE", getEnv("LAUNDRY_PRICE", "3000"), currency)
	f.Food = p.amount("FOOD_PRICE", getEnv("FOOD_PRICE", "2000"), currency)
	return f
}

func (p *parser) amount(key, raw, currency string) money.Money {
	m, err := money.ParseMajor(raw, currency)
	if err != nil {
		p.fail(fmt.Errorf("invalid %s amount %q: %w", key, raw, err))
	}
	return m
}

func (p *parser) integer(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(fmt.Errorf("invalid %s integer: %w", key, err))
		return def
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(fmt.Errorf("invalid %s duration: %w", key, err))
		return def
	}
	return d
}

func (p *parser) durations(key, def string) []time.Duration {
	var out []time.Duration
	for _, raw := range p.list(key, def) {
		d, err := time.ParseDuration(raw)
		if err != nil {
			p.fail(fmt.Errorf("invalid %s component %q: %w", key, raw, err))
			continue
		}
		out = append(out, d)
	}
	return out
}

func (p *parser) boolean(key string, def bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true
	case "0", "f", "false", "no", "n", "off":
		return false
	default:
		p.fail(fmt.Errorf("invalid %s boolean: %q", key, raw))
		return def
	}
}

func (p *parser) list(key, def string) []string {
	raw := getEnv(key, def)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
