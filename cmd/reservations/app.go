package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/meeting-room-reservation/internal/application"
	"github.com/example/meeting-room-reservation/internal/config"
	httptransport "github.com/example/meeting-room-reservation/internal/http"
	"github.com/example/meeting-room-reservation/internal/lock"
	"github.com/example/meeting-room-reservation/internal/metrics"
	"github.com/example/meeting-room-reservation/internal/notify"
	"github.com/example/meeting-room-reservation/internal/persistence/sqlite"
	"github.com/example/meeting-room-reservation/internal/persistence/sqlite/migration"
	"github.com/example/meeting-room-reservation/internal/token"
)

// app owns every long-lived dependency of the API process.
type app struct {
	store   *sqlite.Store
	handler http.Handler
	logger  *slog.Logger

	// closers run in reverse order on Close.
	closers []func(context.Context) error
}

func openStore(ctx context.Context, cfg config.Config) (*sqlite.Store, error) {
	if dir := filepath.Dir(cfg.SQLiteDSN); cfg.SQLiteDSN != ":memory:" && !strings.HasPrefix(cfg.SQLiteDSN, "file:") && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	store, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(cfg.SQLiteDSN), sqlite.WithLocation(cfg.Location()))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return store, nil
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{store: store, logger: logger}
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })

	if err := a.build(ctx, cfg); err != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return nil, errors.Join(err, a.Close(closeCtx))
	}
	return a, nil
}

func (a *app) build(ctx context.Context, cfg config.Config) error {
	if err := a.store.Migrate(ctx, a.logger); err != nil {
		return err
	}

	var (
		commandObserver application.CommandObserver
		notifyObserver  notify.Observer
		httpObserver    httptransport.HTTPObserver
		metricsHandler  http.Handler
	)
	if cfg.MetricsEnabled {
		registry := metrics.New()
		commandObserver, notifyObserver, httpObserver = registry, registry, registry
		metricsHandler = registry.Handler()
	}

	codec, err := token.NewJWTCodec([]byte(cfg.SessionSecret))
	if err != nil {
		return err
	}
	auth := application.NewAuthServiceWithLogger(
		newCredentialStoreAdapter(a.store.Users),
		newSessionRepositoryAdapter(a.store.Sessions),
		codec,
		application.VerifyPassword,
		uuid.NewString,
		time.Now,
		cfg.SessionTTL,
		a.logger,
	)

	locker, err := a.dateLocker(ctx, cfg)
	if err != nil {
		return err
	}
	notifier, err := a.notifier(cfg, notifyObserver)
	if err != nil {
		return err
	}

	reservations := application.NewReservationServiceWithLogger(
		newReservationRepositoryAdapter(a.store.Reservations),
		locker,
		notifier,
		localClock(cfg.Location()),
		a.logger,
	)
	commands := application.NewCommands(reservations, commandObserver)
	settings := application.NewSettingsService(a.store.Settings, a.logger)

	a.handler = httptransport.NewRouter(httptransport.RouterConfig{
		Auth:           httptransport.NewAuthHandler(auth, cfg.CookieSecure, a.logger),
		Reservations:   httptransport.NewReservationHandler(commands, cfg.Location(), a.logger),
		Settings:       httptransport.NewSettingsHandler(settings, a.logger),
		Sessions:       auth,
		LoginLimiter:   httptransport.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateBurst, a.logger),
		Health:         a.store,
		Metrics:        metricsHandler,
		Observer:       httpObserver,
		AllowedOrigins: cfg.CORSOrigins,
		Logger:         a.logger,
	})
	return nil
}

// localClock reads the wall clock in loc, the zone reservation dates are
// kept in.
func localClock(loc *time.Location) func() time.Time {
	return func() time.Time { return time.Now().In(loc) }
}

func (a *app) dateLocker(ctx context.Context, cfg config.Config) (application.DateLocker, error) {
	if cfg.LockBackend != config.LockBackendRedis {
		return application.NewMemoryDateLocker(), nil
	}
	client, err := lock.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return client.Close() })
	a.logger.Info("using redis date locks", "ttl", cfg.LockTTL)
	return lock.NewRedisLocker(client, lock.WithTTL(cfg.LockTTL), lock.WithLogger(a.logger)), nil
}

// notifier returns nil when notifications are disabled.
func (a *app) notifier(cfg config.Config, observer notify.Observer) (application.Notifier, error) {
	var transport notify.Transport
	switch cfg.NotifyTransport {
	case config.NotifySMTP:
		sender, err := notify.NewSMTPSender(notify.SMTPConfig{
			Addr:     cfg.SMTPAddr,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		})
		if err != nil {
			return nil, err
		}
		transport = notify.NewMailTransport(newRecipientSourceAdapter(a.store.Users), sender, cfg.AppURL, a.logger)
	case config.NotifyAMQP:
		session, err := notify.DialAMQP(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return session.Close() })
		transport = session.Publisher()
	case config.NotifyNATS:
		conn, err := notify.ConnectNATS(cfg.NATSURL, "reservations")
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return conn.Drain() })
		transport = notify.NewNATSPublisher(conn, cfg.NATSSubject)
	default:
		return nil, nil
	}

	opts := []notify.DispatcherOption{notify.WithLogger(a.logger)}
	if observer != nil {
		opts = append(opts, notify.WithObserver(observer))
	}
	dispatcher := notify.NewDispatcher(transport, opts...)
	a.closers = append(a.closers, dispatcher.Close)
	a.logger.Info("reservation notifications enabled", "transport", transport.Name())
	return dispatcher, nil
}

func (a *app) Handler() http.Handler {
	return a.handler
}

// Close drains the dispatcher before closing the connections it writes to.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
