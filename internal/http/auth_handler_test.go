package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-room-reservation/internal/application"
)

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("issues the token in body and cookie", func(t *testing.T) {
		t.Parallel()
		f := newRouterFixture(t)
		expires := time.Date(2025, 7, 12, 3, 0, 0, 0, time.UTC)
		f.auth.result = application.AuthenticateResult{
			User: application.User{
				ID: 7, Name: "田中太郎", Email: "tanaka@example.com",
				Department: &application.Department{ID: 3, Name: "開発部", DefaultColor: "#45B7D1"},
			},
			Session: application.Session{ID: "s-1", UserID: 7, ExpiresAt: expires},
			Token:   "signed.jwt.token",
		}

		rec := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "  Tanaka@Example.com ",
			"password": "password123",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "tanaka@example.com", f.auth.params.Email)

		body := decodeBody[loginResponse](t, rec)
		assert.Equal(t, "signed.jwt.token", body.Token)
		assert.Equal(t, "2025-07-12T03:00:00Z", body.ExpiresAt)
		assert.Equal(t, "user", body.User.Role)
		require.NotNil(t, body.User.Department)
		assert.Equal(t, "開発部", body.User.Department.Name)

		cookie := findCookie(rec, sessionCookieName)
		require.NotNil(t, cookie)
		assert.Equal(t, "signed.jwt.token", cookie.Value)
		assert.True(t, cookie.HttpOnly)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		t.Parallel()
		f := newRouterFixture(t)
		f.auth.err = application.ErrInvalidCredentials

		rec := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@example.com", "password": "nope"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, codeInvalidCredentials, decodeBody[errorResponse](t, rec).ErrorCode)
		assert.Nil(t, findCookie(rec, sessionCookieName))
	})

	t.Run("missing fields", func(t *testing.T) {
		t.Parallel()
		f := newRouterFixture(t)

		rec := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": " "})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody[errorResponse](t, rec)
		assert.Contains(t, body.Errors, "email")
		assert.Contains(t, body.Errors, "password")
	})

	t.Run("rate limited per client", func(t *testing.T) {
		t.Parallel()
		f := newRouterFixture(t, func(cfg *RouterConfig) {
			cfg.LoginLimiter = NewRateLimiter(0.001, 2, discardLogger())
		})
		f.auth.err = application.ErrInvalidCredentials

		creds := map[string]string{"email": "a@example.com", "password": "nope"}
		for i := 0; i < 2; i++ {
			rec := f.do(t, http.MethodPost, "/api/auth/login", "", creds)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		}
		rec := f.do(t, http.MethodPost, "/api/auth/login", "", creds)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("Retry-After"))
		assert.Equal(t, codeRateLimited, decodeBody[errorResponse](t, rec).ErrorCode)
	})
}

func TestLogout(t *testing.T) {
	t.Parallel()

	t.Run("revokes the cookie token and clears it", func(t *testing.T) {
		t.Parallel()
		f := newRouterFixture(t)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "cookie-token"})
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"cookie-token"}, f.auth.revoked)
		cookie := findCookie(rec, sessionCookieName)
		require.NotNil(t, cookie)
		assert.Empty(t, cookie.Value)
		assert.Equal(t, -1, cookie.MaxAge)
	})

	t.Run("requires a token", func(t *testing.T) {
		t.Parallel()
		f := newRouterFixture(t)

		rec := f.do(t, http.MethodPost, "/api/auth/logout", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, f.auth.revoked)
	})

	t.Run("unknown token", func(t *testing.T) {
		t.Parallel()
		f := newRouterFixture(t)
		f.auth.revokeErr = application.ErrInvalidCredentials

		rec := f.do(t, http.MethodPost, "/api/auth/logout", "stale", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestMe(t *testing.T) {
	t.Parallel()

	f := newRouterFixture(t)
	f.auth.user = application.User{ID: 1, Name: "管理者", Email: "admin@example.com", IsAdmin: true}

	rec := f.do(t, http.MethodGet, "/api/auth/me", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[meResponse](t, rec)
	assert.Equal(t, "admin", body.User.Role)
	assert.Nil(t, body.User.Department)
	require.Len(t, f.auth.principals, 1)
	assert.Equal(t, int64(1), f.auth.principals[0].UserID)

	rec = f.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExtractTokenFromRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		cookie string
		want   string
	}{
		{name: "bearer header", header: "Bearer abc", want: "abc"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "header wins over cookie", header: "Bearer abc", cookie: "def", want: "abc"},
		{name: "cookie fallback", cookie: "def", want: "def"},
		{name: "basic auth ignored", header: "Basic Zm9vOmJhcg==", want: ""},
		{name: "nothing", want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: tc.cookie})
			}
			assert.Equal(t, tc.want, extractTokenFromRequest(req))
		})
	}
}
