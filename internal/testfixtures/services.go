package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/meeting-room-reservation/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// ReservationServiceDeps captures dependencies for a reservation service.
// A nil Locker gets a fresh in-memory locker.
type ReservationServiceDeps struct {
	Reservations application.ReservationRepository
	Locker       application.DateLocker
	Notifier     application.Notifier
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewReservationService builds a reservation service on the factory clock.
func (f *ServiceFactory) NewReservationService(deps ReservationServiceDeps) *application.ReservationService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewReservationServiceWithLogger(deps.Reservations, deps.Locker, deps.Notifier, now, deps.Logger)
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Credentials    application.CredentialStore
	Sessions       application.SessionRepository
	Tokens         application.TokenCodec
	PasswordVerify application.PasswordVerifier
	Now            func() time.Time
	SessionTTL     time.Duration
	Logger         *slog.Logger
}

// NewAuthService builds an auth service whose session IDs come from the
// factory's IDGenerator.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	verify := deps.PasswordVerify
	if verify == nil {
		verify = application.VerifyPassword
	}
	ttl := deps.SessionTTL
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return application.NewAuthServiceWithLogger(
		deps.Credentials,
		deps.Sessions,
		deps.Tokens,
		verify,
		f.IDGenerator.NextFunc(),
		now,
		ttl,
		deps.Logger,
	)
}
