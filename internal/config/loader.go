package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"slices"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every environment variable read by Load.
const Prefix = "RESERVATION"

// MinSessionSecretLength is the minimum accepted signing secret size in bytes.
const MinSessionSecretLength = 32

const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"

	NotifyNone = "none"
	NotifySMTP = "smtp"
	NotifyAMQP = "amqp"
	NotifyNATS = "nats"
)

// Config captures environment driven configuration values for the reservation service.
type Config struct {
	HTTPPort      int           `envconfig:"HTTP_PORT" default:"8080"`
	SQLiteDSN     string        `envconfig:"SQLITE_DSN" default:"data/reservations.db"`
	SessionSecret string        `envconfig:"SESSION_SECRET"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	CookieSecure  bool          `envconfig:"COOKIE_SECURE" default:"false"`
	Timezone      string        `envconfig:"TIMEZONE" default:"Asia/Tokyo"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	LockBackend string        `envconfig:"LOCK_BACKEND" default:"memory"`
	RedisURL    string        `envconfig:"REDIS_URL"`
	LockTTL     time.Duration `envconfig:"LOCK_TTL" default:"5s"`

	NotifyTransport string `envconfig:"NOTIFY_TRANSPORT" default:"none"`
	AMQPURL         string `envconfig:"AMQP_URL"`
	AMQPQueue       string `envconfig:"AMQP_QUEUE" default:"reservation.notifications"`
	NATSURL         string `envconfig:"NATS_URL"`
	NATSSubject     string `envconfig:"NATS_SUBJECT" default:"reservations.events"`
	SMTPAddr        string `envconfig:"SMTP_ADDR"`
	SMTPFrom        string `envconfig:"SMTP_FROM"`
	SMTPFromName    string `envconfig:"SMTP_FROM_NAME"`
	SMTPUsername    string `envconfig:"SMTP_USERNAME"`
	SMTPPassword    string `envconfig:"SMTP_PASSWORD"`
	AppURL          string `envconfig:"APP_URL"`

	CORSOrigins    []string `envconfig:"CORS_ORIGINS" default:"*"`
	LoginRateLimit float64  `envconfig:"LOGIN_RATE_LIMIT" default:"5"`
	LoginRateBurst int      `envconfig:"LOGIN_RATE_BURST" default:"10"`
	MetricsEnabled bool     `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads an optional .env file from the working directory and then the
// process environment.
func Load() (Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. A missing file is ignored
// and variables already present in the environment win over the file.
func LoadFile(path string) (Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("設定ファイルを読み込めません: %s: %w", path, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		var parseErr *envconfig.ParseError
		if errors.As(err, &parseErr) {
			return Config{}, fmt.Errorf("環境変数の値が不正です: %s", parseErr.KeyName)
		}
		return Config{}, fmt.Errorf("環境変数を読み込めません: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Location resolves Timezone. validate has already checked it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func (c *Config) validate() error {
	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 2)
	key := func(name string) string { return Prefix + "_" + name }

	c.SessionSecret = strings.TrimSpace(c.SessionSecret)
	switch {
	case c.SessionSecret == "":
		missing = append(missing, key("SESSION_SECRET"))
	case len(c.SessionSecret) < MinSessionSecretLength:
		invalid = append(invalid, key("SESSION_SECRET"))
	}

	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		invalid = append(invalid, key("HTTP_PORT"))
	}
	if strings.TrimSpace(c.SQLiteDSN) == "" {
		invalid = append(invalid, key("SQLITE_DSN"))
	}
	if c.SessionTTL <= 0 {
		invalid = append(invalid, key("SESSION_TTL"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		invalid = append(invalid, key("TIMEZONE"))
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.LogLevel)) {
		invalid = append(invalid, key("LOG_LEVEL"))
	}
	if !slices.Contains([]string{"json", "text"}, strings.ToLower(c.LogFormat)) {
		invalid = append(invalid, key("LOG_FORMAT"))
	}

	c.LockBackend = strings.ToLower(strings.TrimSpace(c.LockBackend))
	switch c.LockBackend {
	case LockBackendMemory:
	case LockBackendRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			missing = append(missing, key("REDIS_URL"))
		}
	default:
		invalid = append(invalid, key("LOCK_BACKEND"))
	}
	if c.LockTTL <= 0 {
		invalid = append(invalid, key("LOCK_TTL"))
	}

	c.NotifyTransport = strings.ToLower(strings.TrimSpace(c.NotifyTransport))
	switch c.NotifyTransport {
	case NotifyNone:
	case NotifySMTP:
		missing = appendIfEmpty(missing, c.SMTPAddr, key("SMTP_ADDR"))
		missing = appendIfEmpty(missing, c.SMTPFrom, key("SMTP_FROM"))
	case NotifyAMQP:
		missing = appendIfEmpty(missing, c.AMQPURL, key("AMQP_URL"))
		missing = appendIfEmpty(missing, c.AMQPQueue, key("AMQP_QUEUE"))
	case NotifyNATS:
		missing = appendIfEmpty(missing, c.NATSURL, key("NATS_URL"))
		missing = appendIfEmpty(missing, c.NATSSubject, key("NATS_SUBJECT"))
	default:
		invalid = append(invalid, key("NOTIFY_TRANSPORT"))
	}

	if c.AppURL != "" {
		if u, err := url.Parse(c.AppURL); err != nil || u.Scheme == "" || u.Host == "" {
			invalid = append(invalid, key("APP_URL"))
		}
	}
	if c.LoginRateLimit <= 0 {
		invalid = append(invalid, key("LOGIN_RATE_LIMIT"))
	}
	if c.LoginRateBurst < 1 {
		invalid = append(invalid, key("LOGIN_RATE_BURST"))
	}

	if len(missing) > 0 {
		return fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}
	return nil
}

func appendIfEmpty(list []string, value, name string) []string {
	if strings.TrimSpace(value) == "" {
		return append(list, name)
	}
	return list
}
