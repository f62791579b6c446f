// agora/handlers/handlers.go

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"agora/config"
	"agora/models"
	"agora/storage"
)

// App is an interface that defines the dependencies our handlers need.
type App interface {
	Store() storage.Store
	Logger() *slog.Logger
	DefaultCategoryID() string
	TokenTTL() time.Duration
}

// respondJSON sends a JSON response with a given status code.
func respondJSON(w http.ResponseWriter, status int, payload interface{}, app App) {
	response, err := json.Marshal(payload)
	if err != nil {
		app.Logger().Error("Failed to marshal JSON payload", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		if _, werr := w.Write([]byte(`{"message":"Failed to marshal JSON response"}`)); werr != nil {
			app.Logger().Error("Failed to write internal server error response", "error", werr)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(response); err != nil {
		app.Logger().Error("Failed to write JSON response", "error", err)
	}
}

// respondError sends the standard error body. Server-side failures echo the
// raw error string alongside the message.
func respondError(w http.ResponseWriter, status int, message string, err error, app App) {
	body := models.MessageResponse{Message: message}
	if err != nil && status >= 500 {
		body.Error = err.Error()
		app.Logger().Error(message, "error", err)
	}
	respondJSON(w, status, body, app)
}

// respondStoreError maps storage sentinel errors onto HTTP statuses.
func respondStoreError(w http.ResponseWriter, err error, notFoundMsg string, app App) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, notFoundMsg, nil, app)
	case errors.Is(err, storage.ErrDuplicate):
		respondError(w, http.StatusBadRequest, "Username or email already exists", nil, app)
	default:
		respondError(w, http.StatusInternalServerError, "Server error", err, app)
	}
}

// decodeJSON parses the request body into dst, rejecting malformed payloads.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, app App) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", nil, app)
		return false
	}
	return true
}

// MakeHandler now accepts our generic App interface.
func MakeHandler(app App, fn func(http.ResponseWriter, *http.Request, App)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(w, r, app)
	}
}

// parsePage reads the page query parameter, clamping to 1.
func parsePage(r *http.Request) int64 {
	page, err := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// parseLimit reads the limit query parameter with a default and a cap.
func parseLimit(r *http.Request, fallback int64) int64 {
	limit, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	if err != nil || limit < 1 {
		return fallback
	}
	if limit > config.MaxPageSize {
		return config.MaxPageSize
	}
	return limit
}

func totalPages(total, limit int64) int64 {
	if limit < 1 {
		return 0
	}
	return int64(math.Ceil(float64(total) / float64(limit)))
}

// --- Response population ---

// refCache avoids refetching the same author or category within one request.
type refCache struct {
	users      map[string]*models.UserRef
	categories map[string]*models.CategoryRef
}

func newRefCache() *refCache {
	return &refCache{
		users:      make(map[string]*models.UserRef),
		categories: make(map[string]*models.CategoryRef),
	}
}

func (c *refCache) userRef(r *http.Request, app App, id string) *models.UserRef {
	if ref, ok := c.users[id]; ok {
		return ref
	}
	user, err := app.Store().GetUser(r.Context(), id)
	if err != nil {
		// Authors can be deleted out from under their content.
		c.users[id] = nil
		return nil
	}
	ref := &models.UserRef{ID: user.ID, Username: user.Username, Avatar: user.Avatar}
	c.users[id] = ref
	return ref
}

func (c *refCache) categoryRef(r *http.Request, app App, id string) *models.CategoryRef {
	if ref, ok := c.categories[id]; ok {
		return ref
	}
	category, err := app.Store().GetCategory(r.Context(), id)
	if err != nil {
		c.categories[id] = nil
		return nil
	}
	ref := &models.CategoryRef{ID: category.ID, Name: category.Name}
	c.categories[id] = ref
	return ref
}

func (c *refCache) populatePost(r *http.Request, app App, post *models.Post) {
	post.AuthorInfo = c.userRef(r, app, post.Author)
	post.CategoryInfo = c.categoryRef(r, app, post.Category)
}

func (c *refCache) populatePosts(r *http.Request, app App, posts []models.Post) {
	for i := range posts {
		c.populatePost(r, app, &posts[i])
	}
}

func (c *refCache) populateComments(r *http.Request, app App, comments []models.Comment) {
	for i := range comments {
		comments[i].AuthorInfo = c.userRef(r, app, comments[i].Author)
	}
}
