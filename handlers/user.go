// agora/handlers/user.go

package handlers

import (
	"net/http"
	"strings"

	"agora/config"
	"agora/models"

	"github.com/go-chi/chi/v5"
)

// HandleGetProfile returns the caller's own profile.
func HandleGetProfile(w http.ResponseWriter, r *http.Request, app App) {
	user := CurrentUser(r)
	user.Sanitize()
	respondJSON(w, http.StatusOK, user, app)
}

// HandleUpdateProfile applies a partial update to the caller's profile.
// Empty fields are left unchanged.
func HandleUpdateProfile(w http.ResponseWriter, r *http.Request, app App) {
	user := CurrentUser(r)

	var req models.UpdateProfileRequest
	if !decodeJSON(w, r, &req, app) {
		return
	}
	if req.Username != "" {
		req.Username = strings.TrimSpace(req.Username)
		if len(req.Username) > config.MaxUsernameLen {
			respondError(w, http.StatusBadRequest, "Username is too long", nil, app)
			return
		}
		user.Username = req.Username
	}
	if req.Email != "" {
		user.Email = strings.TrimSpace(strings.ToLower(req.Email))
	}
	if req.Avatar != "" {
		user.Avatar = req.Avatar
	}
	if req.Bio != "" {
		if len(req.Bio) > config.MaxBioLen {
			respondError(w, http.StatusBadRequest, "Bio is too long", nil, app)
			return
		}
		user.Bio = req.Bio
	}

	if err := app.Store().UpdateUser(r.Context(), user); err != nil {
		respondStoreError(w, err, "User not found", app)
		return
	}
	user.Sanitize()
	respondJSON(w, http.StatusOK, user, app)
}

// HandleMyPosts returns the caller's own posts, tombstoned ones included.
func HandleMyPosts(w http.ResponseWriter, r *http.Request, app App) {
	user := CurrentUser(r)
	posts, err := app.Store().ListPostsByAuthor(r.Context(), user.ID, 0)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Server error", err, app)
		return
	}
	newRefCache().populatePosts(r, app, posts)
	respondJSON(w, http.StatusOK, posts, app)
}

// HandleMyComments returns the caller's own comments with parent post titles.
func HandleMyComments(w http.ResponseWriter, r *http.Request, app App) {
	user := CurrentUser(r)
	comments, err := app.Store().ListCommentsByAuthor(r.Context(), user.ID, 0)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Server error", err, app)
		return
	}
	attachPostTitles(r, app, comments)
	respondJSON(w, http.StatusOK, comments, app)
}

// HandlePublicProfile returns a user's public view with recent activity.
// Email and credentials are never exposed here.
func HandlePublicProfile(w http.ResponseWriter, r *http.Request, app App) {
	username := chi.URLParam(r, "username")
	user, err := app.Store().GetUserByUsername(r.Context(), username)
	if err != nil {
		respondStoreError(w, err, "User not found", app)
		return
	}
	user.SanitizePublic()

	posts, err := app.Store().ListPostsByAuthor(r.Context(), user.ID, config.RecentItemsLimit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Server error", err, app)
		return
	}
	comments, err := app.Store().ListCommentsByAuthor(r.Context(), user.ID, config.RecentItemsLimit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Server error", err, app)
		return
	}

	newRefCache().populatePosts(r, app, posts)
	attachPostTitles(r, app, comments)
	respondJSON(w, http.StatusOK, models.PublicProfile{
		User:           user,
		RecentPosts:    posts,
		RecentComments: comments,
	}, app)
}

// attachPostTitles resolves each comment's parent post title for activity
// listings.
func attachPostTitles(r *http.Request, app App, comments []models.Comment) {
	titles := make(map[string]string)
	for i := range comments {
		postID := comments[i].Post
		title, ok := titles[postID]
		if !ok {
			if post, err := app.Store().GetPost(r.Context(), postID); err == nil {
				title = post.Title
			}
			titles[postID] = title
		}
		comments[i].PostTitle = title
	}
}
