// agora/handlers/admin.go

package handlers

import (
	"net/http"
	"strings"
	"time"

	"agora/models"

	"github.com/go-chi/chi/v5"
)

// --- User administration ---

// HandleListUsers returns all accounts for the admin dashboard.
func HandleListUsers(w http.ResponseWriter, r *http.Request, app App) {
	users, err := app.Store().ListUsers(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Server error", err, app)
		return
	}
	for i := range users {
		users[i].Sanitize()
	}
	respondJSON(w, http.StatusOK, users, app)
}

// HandleUpdateRole changes a user's role. Admin only.
func HandleUpdateRole(w http.ResponseWriter, r *http.Request, app App) {
	var req models.UpdateRoleRequest
	if !decodeJSON(w, r, &req, app) {
		return
	}
	if !models.ValidRole(req.Role) {
		respondError(w, http.StatusBadRequest, "Invalid role", nil, app)
		return
	}

	user, err := app.Store().GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondStoreError(w, err, "User not found", app)
		return
	}
	user.Role = req.Role
	if err := app.Store().UpdateUser(r.Context(), user); err != nil {
		respondStoreError(w, err, "User not found", app)
		return
	}
	user.Sanitize()
	respondJSON(w, http.StatusOK, user, app)
}

// HandleBanUser bans an account, optionally for a fixed number of days.
// A zero duration means the ban is permanent. Admins cannot be banned.
func HandleBanUser(w http.ResponseWriter, r *http.Request, app App) {
	var req models.BanRequest
	if !decodeJSON(w, r, &req, app) {
		return
	}

	user, err := app.Store().GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondStoreError(w, err, "User not found", app)
		return
	}
	if user.IsAdmin() {
		respondError(w, http.StatusForbidden, "Cannot ban an admin", nil, app)
		return
	}

	user.IsBanned = true
	user.BanReason = req.Reason
	user.BanExpiration = nil
	if req.Duration > 0 {
		exp := time.Now().UTC().AddDate(0, 0, req.Duration)
		user.BanExpiration = &exp
	}
	if err := app.Store().UpdateUser(r.Context(), user); err != nil {
		respondStoreError(w, err, "User not found", app)
		return
	}
	user.Sanitize()
	respondJSON(w, http.StatusOK, user, app)
}

// HandleUnbanUser lifts a ban and clears its bookkeeping.
func HandleUnbanUser(w http.ResponseWriter, r *http.Request, app App) {
	user, err := app.Store().GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondStoreError(w, err, "User not found", app)
		return
	}

	user.IsBanned = false
	user.BanReason = ""
	user.BanExpiration = nil
	if err := app.Store().UpdateUser(r.Context(), user); err != nil {
		respondStoreError(w, err, "User not found", app)
		return
	}
	user.Sanitize()
	respondJSON(w, http.StatusOK, user, app)
}

// HandleDeleteUser removes an account with all its posts, comments, and
// sessions. Admin only.
func HandleDeleteUser(w http.ResponseWriter, r *http.Request, app App) {
	actor := CurrentUser(r)
	userID := chi.URLParam(r, "userID")
	if actor.ID == userID {
		respondError(w, http.StatusBadRequest, "Cannot delete your own account", nil, app)
		return
	}
	if err := app.Store().DeleteUser(r.Context(), userID); err != nil {
		respondStoreError(w, err, "User not found", app)
		return
	}
	respondJSON(w, http.StatusOK, models.MessageResponse{Message: "User deleted"}, app)
}

// HandleStats returns the moderation dashboard counters. "Today" starts at
// local midnight on the server.
func HandleStats(w http.ResponseWriter, r *http.Request, app App) {
	stats, err := app.Store().Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Server error", err, app)
		return
	}
	respondJSON(w, http.StatusOK, stats, app)
}

// --- Category administration ---

func validateCategoryFields(req *models.CategoryRequest) string {
	if strings.TrimSpace(req.Name) == "" {
		return "Category name is required"
	}
	return ""
}

// HandleCreateCategory creates a category. Admin only.
func HandleCreateCategory(w http.ResponseWriter, r *http.Request, app App) {
	var req models.CategoryRequest
	if !decodeJSON(w, r, &req, app) {
		return
	}
	if msg := validateCategoryFields(&req); msg != "" {
		respondError(w, http.StatusBadRequest, msg, nil, app)
		return
	}

	now := time.Now().UTC()
	category := &models.Category{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Icon:        req.Icon,
		Order:       req.Order,
		Moderators:  []string{},
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := app.Store().CreateCategory(r.Context(), category); err != nil {
		respondStoreError(w, err, "Category not found", app)
		return
	}
	respondJSON(w, http.StatusCreated, category, app)
}

// HandleUpdateCategory edits a category's display fields. Admin only.
func HandleUpdateCategory(w http.ResponseWriter, r *http.Request, app App) {
	category, err := app.Store().GetCategory(r.Context(), chi.URLParam(r, "categoryID"))
	if err != nil {
		respondStoreError(w, err, "Category not found", app)
		return
	}

	var req models.CategoryRequest
	if !decodeJSON(w, r, &req, app) {
		return
	}
	if msg := validateCategoryFields(&req); msg != "" {
		respondError(w, http.StatusBadRequest, msg, nil, app)
		return
	}

	category.Name = strings.TrimSpace(req.Name)
	category.Description = req.Description
	category.Icon = req.Icon
	category.Order = req.Order
	category.UpdatedAt = time.Now().UTC()

	if err := app.Store().UpdateCategory(r.Context(), category); err != nil {
		respondStoreError(w, err, "Category not found", app)
		return
	}
	respondJSON(w, http.StatusOK, category, app)
}

// HandleDeleteCategory deletes a category and reassigns its posts to the
// configured default category. The operation fails outright when no usable
// default exists, so posts never end up pointing at a missing category.
func HandleDeleteCategory(w http.ResponseWriter, r *http.Request, app App) {
	categoryID := chi.URLParam(r, "categoryID")
	defaultID := app.DefaultCategoryID()
	if defaultID == "" || defaultID == categoryID {
		respondError(w, http.StatusBadRequest, "No default category available to receive this category's posts", nil, app)
		return
	}

	moved, err := app.Store().DeleteCategory(r.Context(), categoryID, defaultID)
	if err != nil {
		respondStoreError(w, err, "Category not found", app)
		return
	}
	app.Logger().Info("Category deleted", "category", categoryID, "reassignedPosts", moved)
	respondJSON(w, http.StatusOK, models.MessageResponse{Message: "Category deleted"}, app)
}
