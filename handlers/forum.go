// agora/handlers/forum.go

package handlers

import (
	"net/http"
	"strings"
	"time"

	"agora/config"
	"agora/models"
	"agora/storage"

	"github.com/go-chi/chi/v5"
)

// --- Categories ---

// HandleListCategories returns all categories in display order.
func HandleListCategories(w http.ResponseWriter, r *http.Request, app App) {
	categories, err := app.Store().ListCategories(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Server error", err, app)
		return
	}
	respondJSON(w, http.StatusOK, categories, app)
}

// HandleGetCategory returns a single category.
func HandleGetCategory(w http.ResponseWriter, r *http.Request, app App) {
	category, err := app.Store().GetCategory(r.Context(), chi.URLParam(r, "categoryID"))
	if err != nil {
		respondStoreError(w, err, "Category not found", app)
		return
	}
	respondJSON(w, http.StatusOK, category, app)
}

// HandleCategoryPosts returns a paginated listing of a category's live posts.
func HandleCategoryPosts(w http.ResponseWriter, r *http.Request, app App) {
	categoryID := chi.URLParam(r, "categoryID")
	if _, err := app.Store().GetCategory(r.Context(), categoryID); err != nil {
		respondStoreError(w, err, "Category not found", app)
		return
	}

	page := parsePage(r)
	limit := parseLimit(r, config.DefaultPageSize)
	posts, total, err := app.Store().ListPosts(r.Context(), storage.ListPostsOptions{
		Category: categoryID,
		Page:     page,
		Limit:    limit,
		Sort:     r.URL.Query().Get("sort"),
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Server error", err, app)
		return
	}

	newRefCache().populatePosts(r, app, posts)
	respondJSON(w, http.StatusOK, models.PostPage{
		Posts:       posts,
		TotalPages:  totalPages(total, limit),
		CurrentPage: page,
	}, app)
}

// --- Posts ---

func validatePostFields(title, content string) string {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return "Title and content are required"
	}
	if len(title) > config.MaxTitleLen {
		return "Title is too long"
	}
	if len(content) > config.MaxContentLen {
		return "Content is too long"
	}
	return ""
}

// HandleCreatePost creates a post in a category.
func HandleCreatePost(w http.ResponseWriter, r *http.Request, app App) {
	user := CurrentUser(r)
	if !requireNotBanned(w, user, app) {
		return
	}

	var req models.CreatePostRequest
	if !decodeJSON(w, r, &req, app) {
		return
	}
	if msg := validatePostFields(req.Title, req.Content); msg != "" {
		respondError(w, http.StatusBadRequest, msg, nil, app)
		return
	}
	if len(req.Tags) > config.MaxTagCount {
		respondError(w, http.StatusBadRequest, "Too many tags", nil, app)
		return
	}
	if _, err := app.Store().GetCategory(r.Context(), req.CategoryID); err != nil {
		respondStoreError(w, err, "Category not found", app)
		return
	}

	post := &models.Post{
		Title:    strings.TrimSpace(req.Title),
		Content:  req.Content,
		Author:   user.ID,
		Category: req.CategoryID,
		Tags:     req.Tags,
	}
	if err := app.Store().CreatePost(r.Context(), post); err != nil {
		respondError(w, http.StatusInternalServerError, "Server error", err, app)
		return
	}

	newRefCache().populatePost(r, app, post)
	respondJSON(w, http.StatusCreated, post, app)
}

// HandleGetPost returns a post with its live comments, counting the view.
// Tombstoned posts read as missing.
func HandleGetPost(w http.ResponseWriter, r *http.Request, app App) {
	postID := chi.URLParam(r, "postID")
	post, err := app.Store().GetPost(r.Context(), postID)
	if err != nil {
		respondStoreError(w, err, "Post not found", app)
		return
	}
	if post.IsDeleted {
		respondError(w, http.StatusNotFound, "Post not found", nil, app)
		return
	}

	// Every read counts, refreshes included.
	if err := app.Store().IncrementViews(r.Context(), postID); err != nil {
		app.Logger().Warn("Failed to increment views", "post", postID, "error", err)
	}
	post.Views++

	comments, err := app.Store().ListComments(r.Context(), postID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Server error", err, app)
		return
	}

	cache := newRefCache()
	cache.populatePost(r, app, post)
	cache.populateComments(r, app, comments)
	respondJSON(w, http.StatusOK, models.PostDetail{Post: post, Comments: comments}, app)
}

// canEdit reports whether the user may modify the given author's content.
func canEdit(user *models.User, authorID string) bool {
	return user.ID == authorID || user.CanModerate()
}

// HandleUpdatePost edits a post's title, content, and tags.
func HandleUpdatePost(w http.ResponseWriter, r *http.Request, app App) {
	user := CurrentUser(r)
	if !requireNotBanned(w, user, app) {
		return
	}

	post, err := app.Store().GetPost(r.Context(), chi.URLParam(r, "postID"))
	if err != nil || post.IsDeleted {
		respondError(w, http.StatusNotFound, "Post not found", nil, app)
		return
	}
	if !canEdit(user, post.Author) {
		respondError(w, http.StatusForbidden, "Access denied. Insufficient permissions.", nil, app)
		return
	}

	var req models.UpdatePostRequest
	if !decodeJSON(w, r, &req, app) {
		return
	}
	// All three fields are partial; omitted ones keep their value.
	if len(req.Tags) > config.MaxTagCount {
		respondError(w, http.StatusBadRequest, "Too many tags", nil, app)
		return
	}
	if strings.TrimSpace(req.Title) != "" {
		if len(req.Title) > config.MaxTitleLen {
			respondError(w, http.StatusBadRequest, "Title is too long", nil, app)
			return
		}
		post.Title = strings.TrimSpace(req.Title)
	}
	if strings.TrimSpace(req.Content) != "" {
		if len(req.Content) > config.MaxContentLen {
			respondError(w, http.StatusBadRequest, "Content is too long", nil, app)
			return
		}
		post.Content = req.Content
	}
	if req.Tags != nil {
		post.Tags = req.Tags
	}

	now := time.Now().UTC()
	post.IsEdited = true
	post.LastEditedBy = user.ID
	post.LastEditedAt = &now

	if err := app.Store().UpdatePost(r.Context(), post); err != nil {
		respondStoreError(w, err, "Post not found", app)
		return
	}
	newRefCache().populatePost(r, app, post)
	respondJSON(w, http.StatusOK, post, app)
}

// HandleDeletePost soft-deletes a post, leaving an audited tombstone.
func HandleDeletePost(w http.ResponseWriter, r *http.Request, app App) {
	user := CurrentUser(r)
	post, err := app.Store().GetPost(r.Context(), chi.URLParam(r, "postID"))
	if err != nil || post.IsDeleted {
		respondError(w, http.StatusNotFound, "Post not found", nil, app)
		return
	}
	if !canEdit(user, post.Author) {
		respondError(w, http.StatusForbidden, "Access denied. Insufficient permissions.", nil, app)
		return
	}
	if err := app.Store().SoftDeletePost(r.Context(), post.ID, user.ID); err != nil {
		respondStoreError(w, err, "Post not found", app)
		return
	}
	respondJSON(w, http.StatusOK, models.MessageResponse{Message: "Post deleted"}, app)
}

// HandlePinPost toggles a post's pinned flag. Moderator only.
func HandlePinPost(w http.ResponseWriter, r *http.Request, app App) {
	post, err := app.Store().GetPost(r.Context(), chi.URLParam(r, "postID"))
	if err != nil || post.IsDeleted {
		respondError(w, http.StatusNotFound, "Post not found", nil, app)
		return
	}
	post.IsPinned = !post.IsPinned
	if err := app.Store().UpdatePost(r.Context(), post); err != nil {
		respondStoreError(w, err, "Post not found", app)
		return
	}
	newRefCache().populatePost(r, app, post)
	respondJSON(w, http.StatusOK, post, app)
}

// HandlePermanentDeletePost removes a post and its comments for good.
// Moderator only; the soft-delete tombstone is the normal path.
func HandlePermanentDeletePost(w http.ResponseWriter, r *http.Request, app App) {
	if err := app.Store().DeletePost(r.Context(), chi.URLParam(r, "postID")); err != nil {
		respondStoreError(w, err, "Post not found", app)
		return
	}
	respondJSON(w, http.StatusOK, models.MessageResponse{Message: "Post permanently deleted"}, app)
}

// --- Comments ---

// HandleCreateComment adds a comment, optionally threaded under a parent.
func HandleCreateComment(w http.ResponseWriter, r *http.Request, app App) {
	user := CurrentUser(r)
	if !requireNotBanned(w, user, app) {
		return
	}

	postID := chi.URLParam(r, "postID")
	post, err := app.Store().GetPost(r.Context(), postID)
	if err != nil || post.IsDeleted {
		respondError(w, http.StatusNotFound, "Post not found", nil, app)
		return
	}

	var req models.CreateCommentRequest
	if !decodeJSON(w, r, &req, app) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		respondError(w, http.StatusBadRequest, "Content is required", nil, app)
		return
	}
	if len(req.Content) > config.MaxCommentLen {
		respondError(w, http.StatusBadRequest, "Comment is too long", nil, app)
		return
	}
	if req.ParentCommentID != "" {
		parent, err := app.Store().GetComment(r.Context(), req.ParentCommentID)
		if err != nil || parent.Post != postID {
			respondError(w, http.StatusBadRequest, "Parent comment not found", nil, app)
			return
		}
	}

	comment := &models.Comment{
		Content:       req.Content,
		Author:        user.ID,
		Post:          postID,
		ParentComment: req.ParentCommentID,
	}
	if err := app.Store().AddComment(r.Context(), comment); err != nil {
		respondStoreError(w, err, "Post not found", app)
		return
	}

	comment.AuthorInfo = &models.UserRef{ID: user.ID, Username: user.Username, Avatar: user.Avatar}
	respondJSON(w, http.StatusCreated, comment, app)
}

// HandleUpdateComment edits a comment's content.
func HandleUpdateComment(w http.ResponseWriter, r *http.Request, app App) {
	user := CurrentUser(r)
	if !requireNotBanned(w, user, app) {
		return
	}

	comment, err := app.Store().GetComment(r.Context(), chi.URLParam(r, "commentID"))
	if err != nil || comment.IsDeleted {
		respondError(w, http.StatusNotFound, "Comment not found", nil, app)
		return
	}
	if !canEdit(user, comment.Author) {
		respondError(w, http.StatusForbidden, "Access denied. Insufficient permissions.", nil, app)
		return
	}

	var req models.UpdateCommentRequest
	if !decodeJSON(w, r, &req, app) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		respondError(w, http.StatusBadRequest, "Content is required", nil, app)
		return
	}
	if len(req.Content) > config.MaxCommentLen {
		respondError(w, http.StatusBadRequest, "Comment is too long", nil, app)
		return
	}

	now := time.Now().UTC()
	comment.Content = req.Content
	comment.IsEdited = true
	comment.LastEditedBy = user.ID
	comment.LastEditedAt = &now

	if err := app.Store().UpdateComment(r.Context(), comment); err != nil {
		respondStoreError(w, err, "Comment not found", app)
		return
	}
	comment.AuthorInfo = newRefCache().userRef(r, app, comment.Author)
	respondJSON(w, http.StatusOK, comment, app)
}

// HandleDeleteComment soft-deletes a comment and settles the parent post's
// comment counter.
func HandleDeleteComment(w http.ResponseWriter, r *http.Request, app App) {
	user := CurrentUser(r)
	comment, err := app.Store().GetComment(r.Context(), chi.URLParam(r, "commentID"))
	if err != nil || comment.IsDeleted {
		respondError(w, http.StatusNotFound, "Comment not found", nil, app)
		return
	}
	if !canEdit(user, comment.Author) {
		respondError(w, http.StatusForbidden, "Access denied. Insufficient permissions.", nil, app)
		return
	}
	if err := app.Store().SoftDeleteComment(r.Context(), comment.ID, user.ID); err != nil {
		respondStoreError(w, err, "Comment not found", app)
		return
	}
	respondJSON(w, http.StatusOK, models.MessageResponse{Message: "Comment deleted"}, app)
}

// --- Voting ---

// HandleVotePost toggles the caller's vote on a post.
func HandleVotePost(w http.ResponseWriter, r *http.Request, app App) {
	user := CurrentUser(r)
	if !requireNotBanned(w, user, app) {
		return
	}
	var req models.VoteRequest
	if !decodeJSON(w, r, &req, app) {
		return
	}
	if req.VoteType != models.VoteUp && req.VoteType != models.VoteDown {
		respondError(w, http.StatusBadRequest, "Invalid vote type", nil, app)
		return
	}
	post, err := app.Store().GetPost(r.Context(), chi.URLParam(r, "postID"))
	if err != nil || post.IsDeleted {
		respondError(w, http.StatusNotFound, "Post not found", nil, app)
		return
	}
	updated, err := app.Store().VotePost(r.Context(), post.ID, user.ID, req.VoteType)
	if err != nil {
		respondStoreError(w, err, "Post not found", app)
		return
	}
	newRefCache().populatePost(r, app, updated)
	respondJSON(w, http.StatusOK, updated, app)
}

// HandleVoteComment toggles the caller's vote on a comment.
func HandleVoteComment(w http.ResponseWriter, r *http.Request, app App) {
	user := CurrentUser(r)
	if !requireNotBanned(w, user, app) {
		return
	}
	var req models.VoteRequest
	if !decodeJSON(w, r, &req, app) {
		return
	}
	if req.VoteType != models.VoteUp && req.VoteType != models.VoteDown {
		respondError(w, http.StatusBadRequest, "Invalid vote type", nil, app)
		return
	}
	comment, err := app.Store().GetComment(r.Context(), chi.URLParam(r, "commentID"))
	if err != nil || comment.IsDeleted {
		respondError(w, http.StatusNotFound, "Comment not found", nil, app)
		return
	}
	updated, err := app.Store().VoteComment(r.Context(), comment.ID, user.ID, req.VoteType)
	if err != nil {
		respondStoreError(w, err, "Comment not found", app)
		return
	}
	updated.AuthorInfo = newRefCache().userRef(r, app, updated.Author)
	respondJSON(w, http.StatusOK, updated, app)
}

// --- Search ---

// HandleSearch runs a case-insensitive substring search over titles, content,
// and tags of live posts. An empty query matches everything, so the endpoint
// doubles as a cross-category listing with an optional category filter.
func HandleSearch(w http.ResponseWriter, r *http.Request, app App) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	page := parsePage(r)
	limit := parseLimit(r, config.SearchPageSize)
	posts, total, err := app.Store().SearchPosts(r.Context(), storage.SearchOptions{
		Query:    q,
		Category: r.URL.Query().Get("category"),
		SortBy:   r.URL.Query().Get("sortBy"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Server error", err, app)
		return
	}

	newRefCache().populatePosts(r, app, posts)
	respondJSON(w, http.StatusOK, models.SearchPage{
		Posts:       posts,
		TotalPages:  totalPages(total, limit),
		CurrentPage: page,
		Total:       total,
	}, app)
}
