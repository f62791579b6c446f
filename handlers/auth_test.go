// agora/handlers/auth_test.go

package handlers

import (
	"net/http"
	"strings"
	"testing"

	"agora/models"
)

func TestRegisterAndLogin(t *testing.T) {
	env := setupTestApp(t)

	token, user := env.registerUser(t, "alice")
	if token == "" {
		t.Fatal("Expected a session token from register")
	}
	if user.Password != "" {
		t.Error("Password must not appear in the register response")
	}
	if user.Role != models.RoleUser {
		t.Errorf("Expected default role %q, got %q", models.RoleUser, user.Role)
	}

	rr := env.doJSON(t, http.MethodPost, "/auth/login", "", models.LoginRequest{
		Email: "alice@example.com", Password: "secret123",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 from login, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp models.AuthResponse
	decodeBody(t, rr, &resp)
	if resp.Token == "" || resp.Token == token {
		t.Error("Login should issue a fresh token")
	}
	if resp.User.Password != "" {
		t.Error("Password must not appear in the login response")
	}
}

func TestRegisterValidation(t *testing.T) {
	env := setupTestApp(t)

	cases := []struct {
		name string
		req  models.RegisterRequest
		want int
	}{
		{"missing username", models.RegisterRequest{Email: "a@example.com", Password: "secret123"}, http.StatusBadRequest},
		{"missing email", models.RegisterRequest{Username: "a", Password: "secret123"}, http.StatusBadRequest},
		{"short password", models.RegisterRequest{Username: "a", Email: "a@example.com", Password: "123"}, http.StatusBadRequest},
		{"long username", models.RegisterRequest{Username: strings.Repeat("x", 40), Email: "a@example.com", Password: "secret123"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.doJSON(t, http.MethodPost, "/auth/register", "", tc.req)
			if rr.Code != tc.want {
				t.Errorf("Expected %d, got %d: %s", tc.want, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	env := setupTestApp(t)
	env.registerUser(t, "alice")

	rr := env.doJSON(t, http.MethodPost, "/auth/register", "", models.RegisterRequest{
		Username: "alice", Email: "fresh@example.com", Password: "secret123",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for duplicate username, got %d", rr.Code)
	}
	var msg models.MessageResponse
	decodeBody(t, rr, &msg)
	if msg.Message != "Username or email already exists" {
		t.Errorf("Unexpected duplicate message: %q", msg.Message)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	env := setupTestApp(t)
	env.registerUser(t, "alice")

	rr := env.doJSON(t, http.MethodPost, "/auth/login", "", models.LoginRequest{
		Email: "alice@example.com", Password: "wrong",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for wrong password, got %d", rr.Code)
	}

	rr = env.doJSON(t, http.MethodPost, "/auth/login", "", models.LoginRequest{
		Email: "nobody@example.com", Password: "secret123",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for unknown email, got %d", rr.Code)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	env := setupTestApp(t)
	token, _ := env.registerUser(t, "alice")

	rr := env.doJSON(t, http.MethodGet, "/auth/me", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 from /auth/me, got %d", rr.Code)
	}

	rr = env.doJSON(t, http.MethodPost, "/auth/logout", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 from logout, got %d", rr.Code)
	}

	rr = env.doJSON(t, http.MethodGet, "/auth/me", token, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 after logout, got %d", rr.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	env := setupTestApp(t)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/auth/me"},
		{http.MethodPost, "/forum/posts"},
		{http.MethodGet, "/user/profile"},
		{http.MethodGet, "/admin/stats"},
	}
	for _, tc := range cases {
		rr := env.doJSON(t, tc.method, tc.path, "", nil)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401 without token, got %d", tc.method, tc.path, rr.Code)
		}
	}

	rr := env.doJSON(t, http.MethodGet, "/auth/me", "not-a-real-token", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for a bogus token, got %d", rr.Code)
	}
}
