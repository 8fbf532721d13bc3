package main

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-room-reservation/internal/application"
	"github.com/example/meeting-room-reservation/internal/testfixtures"
	"github.com/example/meeting-room-reservation/internal/token"
)

func TestReservationAdapterSerializesParallelCreates(t *testing.T) {
	t.Parallel()

	h := testfixtures.NewSQLiteHarness(t)
	dept := h.SeedDepartment(t, testfixtures.NewDepartmentFixture("営業部", "#4ECDC4"))
	owner := h.SeedUser(t, testfixtures.NewUserFixture(testfixtures.WithUserDepartment(dept.ID)))
	principal := toApplicationUser(owner).Principal()

	factory := testfixtures.NewServiceFactory(testfixtures.WithClock(testfixtures.NewClock(testfixtures.ReferenceTime())))
	service := factory.NewReservationService(testfixtures.ReservationServiceDeps{
		Reservations: newReservationRepositoryAdapter(h.Reservations),
		Locker:       application.NewMemoryDateLocker(),
	})
	draft := testfixtures.NewReservationFixture().Draft()

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Create(context.Background(), application.CreateCommand{Principal: principal, Draft: draft})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, application.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, conflicts)

	stored, err := h.Reservations.ListReservationsByDate(context.Background(), draft.Date)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestReservationAdapterRoundTripsOwnerDepartment(t *testing.T) {
	t.Parallel()

	h := testfixtures.NewSQLiteHarness(t)
	dept := h.SeedDepartment(t, testfixtures.NewDepartmentFixture("開発部", "#45B7D1"))
	owner := h.SeedUser(t, testfixtures.NewUserFixture(testfixtures.WithUserDepartment(dept.ID)))
	colleague := h.SeedUser(t, testfixtures.NewUserFixture(testfixtures.WithUserDepartment(dept.ID)))
	stranger := h.SeedUser(t, testfixtures.NewUserFixture())

	factory := testfixtures.NewServiceFactory(testfixtures.WithClock(testfixtures.NewClock(testfixtures.ReferenceTime())))
	service := factory.NewReservationService(testfixtures.ReservationServiceDeps{
		Reservations: newReservationRepositoryAdapter(h.Reservations),
	})
	ctx := context.Background()

	view, err := service.Create(ctx, application.CreateCommand{
		Principal: toApplicationUser(owner).Principal(),
		Draft:     testfixtures.NewReservationFixture().Draft(),
	})
	require.NoError(t, err)
	require.NotNil(t, view.OwnerDepartmentID)
	assert.Equal(t, dept.ID, *view.OwnerDepartmentID)
	assert.Equal(t, "開発部", view.DepartmentName)
	assert.Equal(t, "#45B7D1", view.DefaultColor)

	err = service.Delete(ctx, application.DeleteCommand{Principal: toApplicationUser(stranger).Principal(), ID: view.ID})
	require.ErrorIs(t, err, application.ErrPermission)

	err = service.Delete(ctx, application.DeleteCommand{Principal: toApplicationUser(colleague).Principal(), ID: view.ID})
	require.NoError(t, err)

	_, err = service.Get(ctx, application.GetCommand{Principal: toApplicationUser(owner).Principal(), ID: view.ID})
	assert.ErrorIs(t, err, application.ErrNotFound)
}

func TestAuthAdaptersIssueAndRevokeSessions(t *testing.T) {
	t.Parallel()

	h := testfixtures.NewSQLiteHarness(t)
	hash, err := application.CreatePasswordHash("s3cret", application.DefaultArgon2idParams)
	require.NoError(t, err)
	user := h.SeedUser(t, testfixtures.NewUserFixture(
		testfixtures.WithUserEmail("member@example.com"),
		testfixtures.WithUserPasswordHash(hash),
	))

	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	codec, err := token.NewJWTCodec([]byte("0123456789abcdef0123456789abcdef"), token.WithClock(clock.NowFunc()))
	require.NoError(t, err)

	factory := testfixtures.NewServiceFactory(
		testfixtures.WithClock(clock),
		testfixtures.WithIDGenerator(testfixtures.NewIDGenerator("login")),
	)
	auth := factory.NewAuthService(testfixtures.AuthServiceDeps{
		Credentials: newCredentialStoreAdapter(h.Users),
		Sessions:    newSessionRepositoryAdapter(h.Sessions),
		Tokens:      codec,
	})
	ctx := context.Background()

	result, err := auth.Authenticate(ctx, application.AuthenticateParams{Email: "member@example.com", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.Equal(t, "login-1", result.Session.ID)

	principal, err := auth.ValidateSession(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)

	require.NoError(t, auth.RevokeSession(ctx, result.Token))
	_, err = auth.ValidateSession(ctx, result.Token)
	assert.ErrorIs(t, err, application.ErrSessionRevoked)

	_, err = auth.Authenticate(ctx, application.AuthenticateParams{Email: "member@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, application.ErrInvalidCredentials)
}

func TestRecipientSourceAdapterListsOptedInUsers(t *testing.T) {
	t.Parallel()

	h := testfixtures.NewSQLiteHarness(t)
	h.SeedUser(t, testfixtures.NewUserFixture(testfixtures.WithUserEmail("in@example.com"), testfixtures.WithUserName("受信者")))
	h.SeedUser(t, testfixtures.NewUserFixture(testfixtures.WithUserEmail("out@example.com"), testfixtures.WithUserNotifications(false)))

	recipients, err := newRecipientSourceAdapter(h.Users).ListNotificationRecipients(context.Background())
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "in@example.com", recipients[0].Email)
	assert.Equal(t, "受信者", recipients[0].Name)
}
