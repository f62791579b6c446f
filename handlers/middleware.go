// agora/handlers/middleware.go

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"agora/models"

	"github.com/go-chi/chi/v5/middleware"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const CurrentUserKey ContextKey = "currentUser"

// CurrentUser returns the authenticated user resolved by RequireUser.
func CurrentUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(CurrentUserKey).(*models.User)
	return user
}

// bearerToken extracts the token from an "Authorization: Bearer ..." header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireUser resolves the bearer token to a session and loads the full user
// into the request context. Expired sessions are deleted on sight.
func RequireUser(app App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				respondError(w, http.StatusUnauthorized, "Authentication required", nil, app)
				return
			}
			session, err := app.Store().GetSession(r.Context(), token)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "Invalid or expired token", nil, app)
				return
			}
			if session.Expired(time.Now()) {
				if err := app.Store().DeleteSession(r.Context(), token); err != nil {
					app.Logger().Warn("Failed to delete expired session", "error", err)
				}
				respondError(w, http.StatusUnauthorized, "Invalid or expired token", nil, app)
				return
			}
			user, err := app.Store().GetUser(r.Context(), session.UserID)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "Invalid or expired token", nil, app)
				return
			}
			ctx := context.WithValue(r.Context(), CurrentUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireModerator gates a route to moderators and admins. Must be mounted
// inside RequireUser.
func RequireModerator(app App) func(http.Handler) http.Handler {
	return requireRole(app, func(u *models.User) bool { return u.CanModerate() })
}

// RequireAdmin gates a route to admins only. Must be mounted inside RequireUser.
func RequireAdmin(app App) func(http.Handler) http.Handler {
	return requireRole(app, func(u *models.User) bool { return u.IsAdmin() })
}

func requireRole(app App, allowed func(*models.User) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := CurrentUser(r)
			if user == nil || !allowed(user) {
				respondError(w, http.StatusForbidden, "Access denied. Insufficient permissions.", nil, app)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// respondBanned sends the 403 ban payload for write attempts by banned users.
func respondBanned(w http.ResponseWriter, user *models.User, app App) {
	payload := map[string]interface{}{
		"message":   "You are banned from performing this action",
		"banReason": user.BanReason,
	}
	if user.BanExpiration != nil {
		payload["banExpiration"] = user.BanExpiration
	}
	respondJSON(w, http.StatusForbidden, payload, app)
}

// requireNotBanned enforces the write gate for banned accounts. Expired bans
// do not block.
func requireNotBanned(w http.ResponseWriter, user *models.User, app App) bool {
	if user.BanActive(time.Now()) {
		respondBanned(w, user, app)
		return false
	}
	return true
}

// NewStructuredLogger returns a chi middleware that logs each request through
// the application's slog logger.
func NewStructuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("Request served",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
