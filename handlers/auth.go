// agora/handlers/auth.go

package handlers

import (
	"net/http"
	"strings"
	"time"

	"agora/config"
	"agora/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// newSession issues an opaque bearer token for the user.
func newSession(r *http.Request, app App, userID string) (string, error) {
	token := uuid.NewString()
	now := time.Now().UTC()
	session := &models.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(app.TokenTTL()),
	}
	if err := app.Store().CreateSession(r.Context(), session); err != nil {
		return "", err
	}
	return token, nil
}

// HandleRegister creates an account and signs the new user in.
func HandleRegister(w http.ResponseWriter, r *http.Request, app App) {
	var req models.RegisterRequest
	if !decodeJSON(w, r, &req, app) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Username == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Username, email, and password are required", nil, app)
		return
	}
	if len(req.Username) > config.MaxUsernameLen {
		respondError(w, http.StatusBadRequest, "Username is too long", nil, app)
		return
	}
	if len(req.Password) < config.MinPasswordLen {
		respondError(w, http.StatusBadRequest, "Password must be at least 6 characters", nil, app)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Server error", err, app)
		return
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hash),
		Role:     models.RoleUser,
		JoinDate: time.Now().UTC(),
	}
	if err := app.Store().CreateUser(r.Context(), user); err != nil {
		respondStoreError(w, err, "User not found", app)
		return
	}

	token, err := newSession(r, app, user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Server error", err, app)
		return
	}
	user.Sanitize()
	respondJSON(w, http.StatusCreated, models.AuthResponse{Token: token, User: user}, app)
}

// HandleLogin verifies credentials and issues a session token. Banned users
// can still log in; the ban gate sits on write operations.
func HandleLogin(w http.ResponseWriter, r *http.Request, app App) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req, app) {
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	user, err := app.Store().GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid email or password", nil, app)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "Invalid email or password", nil, app)
		return
	}

	token, err := newSession(r, app, user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Server error", err, app)
		return
	}
	user.Sanitize()
	respondJSON(w, http.StatusOK, models.AuthResponse{Token: token, User: user}, app)
}

// HandleLogout revokes the presented session token.
func HandleLogout(w http.ResponseWriter, r *http.Request, app App) {
	token := bearerToken(r)
	if token != "" {
		if err := app.Store().DeleteSession(r.Context(), token); err != nil {
			app.Logger().Warn("Failed to delete session on logout", "error", err)
		}
	}
	respondJSON(w, http.StatusOK, models.MessageResponse{Message: "Logged out"}, app)
}

// HandleMe returns the authenticated user's own record.
func HandleMe(w http.ResponseWriter, r *http.Request, app App) {
	user := CurrentUser(r)
	user.Sanitize()
	respondJSON(w, http.StatusOK, user, app)
}
