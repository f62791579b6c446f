// agora/storage/interface.go
package storage

import (
	"context"
	"errors"
	"strings"

	"agora/models"
)

var (
	// ErrNotFound is returned when no document matches the given id or key.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a write violates a unique constraint
	// (username, email, category name).
	ErrDuplicate = errors.New("duplicate key")
)

// ListPostsOptions controls paginated category listings.
type ListPostsOptions struct {
	Category string
	Page     int64
	Limit    int64
	Sort     string // mongoose-style sort key, e.g. "-lastActivity"
}

// SearchOptions controls free-text post search.
type SearchOptions struct {
	Query    string
	Category string
	SortBy   string
	Page     int64
	Limit    int64
}

// Store is the contract both the document-database and in-memory
// implementations satisfy. All mutations that span two documents (comment
// creation and the parent post's counter, cascading deletes) live here so
// the cross-entity effect is visible at the call site.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id string) error

	// Sessions
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, token string) (*models.Session, error)
	DeleteSession(ctx context.Context, token string) error

	// Categories
	CreateCategory(ctx context.Context, category *models.Category) error
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	UpdateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id, reassignTo string) (int64, error)

	// Posts
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	ListPosts(ctx context.Context, opts ListPostsOptions) ([]models.Post, int64, error)
	ListPostsByAuthor(ctx context.Context, authorID string, limit int64) ([]models.Post, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	SoftDeletePost(ctx context.Context, id, actorID string) error
	DeletePost(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
	VotePost(ctx context.Context, id, voterID, voteType string) (*models.Post, error)
	SearchPosts(ctx context.Context, opts SearchOptions) ([]models.Post, int64, error)

	// Comments
	AddComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, id string) (*models.Comment, error)
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
	ListCommentsByAuthor(ctx context.Context, authorID string, limit int64) ([]models.Comment, error)
	UpdateComment(ctx context.Context, comment *models.Comment) error
	SoftDeleteComment(ctx context.Context, id, actorID string) error
	VoteComment(ctx context.Context, id, voterID, voteType string) (*models.Comment, error)

	// Aggregates
	Stats(ctx context.Context) (*models.Stats, error)
}

// Sortable post fields, mapped from the API's mongoose-style sort keys.
var sortFields = map[string]bool{
	"lastActivity": true,
	"createdAt":    true,
	"views":        true,
	"commentCount": true,
}

// ParseSort resolves a mongoose-style sort key ("-lastActivity", "views")
// into a field name and direction, falling back to the given default when
// the key names an unknown field.
func ParseSort(sort, fallback string) (field string, descending bool) {
	if sort == "" {
		sort = fallback
	}
	descending = strings.HasPrefix(sort, "-")
	field = strings.TrimPrefix(sort, "-")
	if !sortFields[field] {
		return strings.TrimPrefix(fallback, "-"), strings.HasPrefix(fallback, "-")
	}
	return field, descending
}
