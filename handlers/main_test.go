// agora/handlers/main_test.go

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agora/models"
	"agora/storage"
	"agora/storage/inmemory"

	"github.com/go-chi/chi/v5"
)

// MockApplication holds dependencies for handler tests.
type MockApplication struct {
	store             storage.Store
	logger            *slog.Logger
	defaultCategoryID string
	tokenTTL          time.Duration
}

func (a *MockApplication) Store() storage.Store      { return a.store }
func (a *MockApplication) Logger() *slog.Logger      { return a.logger }
func (a *MockApplication) DefaultCategoryID() string { return a.defaultCategoryID }
func (a *MockApplication) TokenTTL() time.Duration   { return a.tokenTTL }

type testEnv struct {
	app *MockApplication
	mux *chi.Mux
}

// setupTestApp builds the full router over a seeded in-memory store.
func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	app := &MockApplication{
		store:    inmemory.New(),
		logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
		tokenTTL: time.Hour,
	}
	defaultID, err := storage.SeedCategories(context.Background(), app.store)
	if err != nil {
		t.Fatalf("Failed to seed categories: %v", err)
	}
	app.defaultCategoryID = defaultID

	return &testEnv{app: app, mux: SetupRouter(app)}
}

// doJSON sends a request through the router, optionally with a bearer token,
// and returns the recorded response.
func (env *testEnv) doJSON(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	env.mux.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(dst); err != nil {
		t.Fatalf("Failed to decode response body %q: %v", rr.Body.String(), err)
	}
}

// registerUser creates an account through the API and returns its token and
// user record.
func (env *testEnv) registerUser(t *testing.T, username string) (string, *models.User) {
	t.Helper()

	rr := env.doJSON(t, http.MethodPost, "/auth/register", "", models.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Failed to register %q: status %d body %s", username, rr.Code, rr.Body.String())
	}
	var resp models.AuthResponse
	decodeBody(t, rr, &resp)
	return resp.Token, resp.User
}

// promote changes a user's role directly in the store.
func (env *testEnv) promote(t *testing.T, userID, role string) {
	t.Helper()

	user, err := env.app.store.GetUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("Failed to load user for promotion: %v", err)
	}
	user.Role = role
	if err := env.app.store.UpdateUser(context.Background(), user); err != nil {
		t.Fatalf("Failed to promote user: %v", err)
	}
}

// createPost makes a post in the default seeded category.
func (env *testEnv) createPost(t *testing.T, token, title string) *models.Post {
	t.Helper()

	rr := env.doJSON(t, http.MethodPost, "/forum/posts", token, models.CreatePostRequest{
		Title:      title,
		Content:    "content of " + title,
		CategoryID: env.app.defaultCategoryID,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Failed to create post %q: status %d body %s", title, rr.Code, rr.Body.String())
	}
	var post models.Post
	decodeBody(t, rr, &post)
	return &post
}

// createComment adds a comment to a post.
func (env *testEnv) createComment(t *testing.T, token, postID, content string) *models.Comment {
	t.Helper()

	rr := env.doJSON(t, http.MethodPost, "/forum/posts/"+postID+"/comments", token, models.CreateCommentRequest{
		Content: content,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Failed to create comment: status %d body %s", rr.Code, rr.Body.String())
	}
	var comment models.Comment
	decodeBody(t, rr, &comment)
	return &comment
}
