package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-room-reservation/internal/logging"
)

func TestRequireSession(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		header     string
		cookie     string
		wantStatus int
		wantCode   string
		wantUser   int64
	}{
		{name: "missing credentials", wantStatus: http.StatusUnauthorized, wantCode: codeAuthRequired},
		{name: "unknown bearer", header: "Bearer malformed", wantStatus: http.StatusUnauthorized, wantCode: codeAuthRequired},
		{name: "expired cookie", cookie: "expired-token", wantStatus: http.StatusUnauthorized, wantCode: codeSessionExpired},
		{name: "valid bearer", header: "Bearer user-token", wantStatus: http.StatusNoContent, wantUser: 7},
		{name: "valid cookie", cookie: "admin-token", wantStatus: http.StatusNoContent, wantUser: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var seen int64
			next := func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
				principal, ok := PrincipalFromContext(r.Context())
				require.True(t, ok)
				seen = principal.UserID
				w.WriteHeader(http.StatusNoContent)
			}
			handle := RequireSession(fakeValidator{}, discardLogger())(next)

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: tc.cookie})
			}
			rec := httptest.NewRecorder()
			handle(rec, req, nil)

			require.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantCode != "" {
				assert.Equal(t, tc.wantCode, decodeBody[errorResponse](t, rec).ErrorCode)
			}
			assert.Equal(t, tc.wantUser, seen)
		})
	}
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	t.Run("assigns a request id and scoped logger", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		base := slog.New(slog.NewJSONHandler(&buf, nil))

		var ctxID string
		handler := RequestLogger(base, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctxID = RequestIDFromContext(r.Context())
			require.NotNil(t, logging.FromContext(r.Context()))
			w.WriteHeader(http.StatusAccepted)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

		id := rec.Header().Get("X-Request-ID")
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, ctxID)
		assert.Contains(t, buf.String(), `"request_id":"`+id+`"`)
		assert.Contains(t, buf.String(), `"status":202`)
	})

	t.Run("keeps a valid incoming id and replaces junk", func(t *testing.T) {
		t.Parallel()

		handler := RequestLogger(discardLogger(), nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

		incoming := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-Request-ID", incoming)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, incoming, rec.Header().Get("X-Request-ID"))

		req = httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-Request-ID", "<script>")
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.NotEqual(t, "<script>", rec.Header().Get("X-Request-ID"))
	})

	t.Run("implicit status is reported as 200", func(t *testing.T) {
		t.Parallel()

		observer := &recordingObserver{}
		handler := RequestLogger(discardLogger(), observer)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

		got := observer.snapshot()
		require.Len(t, got, 1)
		assert.Equal(t, http.StatusOK, got[0].status)
		assert.Equal(t, "unmatched", got[0].route)
	})
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	handler := SecurityHeaders(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestRateLimiterSweepsIdleVisitors(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 7, 11, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1, discardLogger())
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("192.0.2.1"))
	assert.False(t, rl.allow("192.0.2.1"))
	assert.True(t, rl.allow("192.0.2.2"), "limits are per client")

	now = now.Add(visitorIdleTTL + time.Second)
	assert.True(t, rl.allow("192.0.2.3"))
	rl.mu.Lock()
	_, stale := rl.visitors["192.0.2.1"]
	rl.mu.Unlock()
	assert.False(t, stale)
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", clientIP(req))

	req.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", clientIP(req))
}

func TestParseDateTime(t *testing.T) {
	t.Parallel()

	want := time.Date(2025, 7, 11, 12, 45, 0, 0, tokyo)
	for _, raw := range []string{"2025-07-11T12:45:00", "2025-07-11 12:45:00", "2025-07-11T12:45", " 2025-07-11T12:45:00 "} {
		got, err := parseDateTime(raw, tokyo)
		require.NoError(t, err, raw)
		assert.True(t, want.Equal(got), raw)
	}

	_, err := parseDateTime("2025-07-11T12:45:00Z", tokyo)
	assert.Error(t, err)

	day, err := parseDate("2025-07-11", tokyo)
	require.NoError(t, err)
	assert.Equal(t, tokyo, day.Location())
	_, err = parseDate("11/07/2025", tokyo)
	assert.Error(t, err)
}
