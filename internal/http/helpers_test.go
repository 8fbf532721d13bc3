package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/meeting-room-reservation/internal/application"
)

var tokyo = time.FixedZone("JST", 9*60*60)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeValidator struct{}

func (fakeValidator) ValidateSession(_ context.Context, token string) (application.Principal, error) {
	dept := int64(3)
	switch token {
	case "user-token":
		return application.Principal{UserID: 7, DepartmentID: &dept}, nil
	case "admin-token":
		return application.Principal{UserID: 1, IsAdmin: true}, nil
	case "expired-token":
		return application.Principal{}, application.ErrSessionExpired
	default:
		return application.Principal{}, application.ErrUnauthorized
	}
}

type fakeExecutor struct {
	mu       sync.Mutex
	commands []application.Command
	result   application.Result
	err      error
}

func (f *fakeExecutor) Execute(_ context.Context, cmd application.Command) (application.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
	return f.result, f.err
}

func (f *fakeExecutor) last(t *testing.T) application.Command {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.commands, "no command executed")
	return f.commands[len(f.commands)-1]
}

func (f *fakeExecutor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.commands)
}

type fakeAuth struct {
	result     application.AuthenticateResult
	err        error
	revokeErr  error
	revoked    []string
	user       application.User
	params     application.AuthenticateParams
	principals []application.Principal
}

func (f *fakeAuth) Authenticate(_ context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error) {
	f.params = params
	return f.result, f.err
}

func (f *fakeAuth) RevokeSession(_ context.Context, token string) error {
	f.revoked = append(f.revoked, token)
	return f.revokeErr
}

func (f *fakeAuth) CurrentUser(_ context.Context, principal application.Principal) (application.User, error) {
	f.principals = append(f.principals, principal)
	return f.user, nil
}

type fakeSettings struct {
	color string
	err   error
	set   []string
}

func (f *fakeSettings) CompanyColor(context.Context) (string, error) {
	return f.color, nil
}

func (f *fakeSettings) SetCompanyColor(_ context.Context, principal application.Principal, color string) error {
	if f.err != nil {
		return f.err
	}
	if !principal.IsAdmin {
		return application.ErrPermission
	}
	f.set = append(f.set, color)
	f.color = color
	return nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type routerFixture struct {
	executor *fakeExecutor
	auth     *fakeAuth
	settings *fakeSettings
	handler  http.Handler
}

func newRouterFixture(t *testing.T, mutate ...func(*RouterConfig)) *routerFixture {
	t.Helper()
	logger := discardLogger()
	f := &routerFixture{
		executor: &fakeExecutor{},
		auth:     &fakeAuth{},
		settings: &fakeSettings{color: "#718096"},
	}
	cfg := RouterConfig{
		Auth:         NewAuthHandler(f.auth, false, logger),
		Reservations: NewReservationHandler(f.executor, tokyo, logger),
		Settings:     NewSettingsHandler(f.settings, logger),
		Sessions:     fakeValidator{},
		Health:       fakePinger{},
		Logger:       logger,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	f.handler = NewRouter(cfg)
	return f
}

func (f *routerFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.10:52000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func sampleView() application.ReservationView {
	dept := int64(3)
	created := time.Date(2025, 7, 1, 1, 0, 0, 0, time.UTC)
	return application.ReservationView{
		Reservation: application.Reservation{
			ID:          12,
			OwnerUserID: 7,
			Title:       "定例会議",
			Description: "週次の進捗確認",
			Date:        time.Date(2025, 7, 11, 0, 0, 0, 0, tokyo),
			Start:       time.Date(2025, 7, 11, 12, 45, 0, 0, tokyo),
			End:         time.Date(2025, 7, 11, 13, 45, 0, 0, tokyo),
			CreatedAt:   created,
			UpdatedAt:   created,
		},
		UserName:          "田中太郎",
		OwnerDepartmentID: &dept,
		DepartmentName:    "開発部",
		DefaultColor:      "#45B7D1",
	}
}
