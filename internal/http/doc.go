// Package http exposes the reservation API over JSON.
//
// Routes are registered on an httprouter.Router by NewRouter:
//   - POST /api/auth/login: {"email","password"} to a signed session token,
//     also set as the HttpOnly `session_token` cookie. Rate limited per IP.
//   - POST /api/auth/logout: revokes the token from the Authorization header
//     or cookie and clears the cookie.
//   - GET /api/auth/me: the current user with department.
//   - GET, POST /api/reservations and GET, PUT, DELETE /api/reservations/:id:
//     reservation commands. Listing accepts start_date/end_date, or
//     view_type=list for upcoming reservations, and defaults to the current
//     month.
//   - GET, PUT /api/company-color: the company default color. Writes are
//     admin only.
//   - GET /healthz and GET /metrics.
//
// Errors are returned as {"error_code","message","rule","errors"}.
// Validation failures carry the violated rule and per-field messages.
package http
