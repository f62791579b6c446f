// agora/storage/inmemory/store.go
package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"agora/models"
	"agora/storage"
	"agora/utils"

	"github.com/google/uuid"
)

// Store implements storage.Store with mutex-guarded maps. It backs the test
// suites and the AGORA_STORE=memory development mode. Unlike the document
// database, every cross-entity mutation here is atomic under the mutex.
type Store struct {
	mu         sync.RWMutex
	users      map[string]*models.User
	sessions   map[string]*models.Session
	categories map[string]*models.Category
	posts      map[string]*models.Post
	comments   map[string]*models.Comment
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users:      make(map[string]*models.User),
		sessions:   make(map[string]*models.Session),
		categories: make(map[string]*models.Category),
		posts:      make(map[string]*models.Post),
		comments:   make(map[string]*models.Comment),
	}
}

// === Users ===

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return storage.ErrDuplicate
		}
	}
	user.ID = uuid.NewString()
	if user.JoinDate.IsZero() {
		user.JoinDate = time.Now().UTC()
	}
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyUser(user), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].JoinDate.Before(users[j].JoinDate)
	})
	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return storage.ErrNotFound
	}
	for id, u := range s.users {
		if id == user.ID {
			continue
		}
		if u.Username == user.Username || u.Email == user.Email {
			return storage.ErrDuplicate
		}
	}
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return storage.ErrNotFound
	}
	for postID, p := range s.posts {
		if p.Author == id {
			delete(s.posts, postID)
		}
	}
	for commentID, c := range s.comments {
		if c.Author == id {
			delete(s.comments, commentID)
		}
	}
	for token, sess := range s.sessions {
		if sess.UserID == id {
			delete(s.sessions, token)
		}
	}
	delete(s.users, id)
	return nil
}

// === Sessions ===

func (s *Store) CreateSession(ctx context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.Token] = &models.Session{
		Token: session.Token, UserID: session.UserID,
		CreatedAt: session.CreatedAt, ExpiresAt: session.ExpiresAt,
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, token string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *sess
	return &out, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[token]; !ok {
		return storage.ErrNotFound
	}
	delete(s.sessions, token)
	return nil
}

// === Categories ===

func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.categories {
		if c.Name == category.Name {
			return storage.ErrDuplicate
		}
	}
	category.ID = uuid.NewString()
	category.Slug = utils.Slugify(category.Name)
	s.categories[category.ID] = copyCategory(category)
	return nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, ok := s.categories[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyCategory(category), nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		categories = append(categories, *copyCategory(c))
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Order != categories[j].Order {
			return categories[i].Order < categories[j].Order
		}
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}

func (s *Store) UpdateCategory(ctx context.Context, category *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[category.ID]; !ok {
		return storage.ErrNotFound
	}
	for id, c := range s.categories {
		if id != category.ID && c.Name == category.Name {
			return storage.ErrDuplicate
		}
	}
	category.Slug = utils.Slugify(category.Name)
	s.categories[category.ID] = copyCategory(category)
	return nil
}

func (s *Store) DeleteCategory(ctx context.Context, id, reassignTo string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return 0, storage.ErrNotFound
	}
	if _, ok := s.categories[reassignTo]; !ok {
		return 0, storage.ErrNotFound
	}
	var moved int64
	for _, p := range s.posts {
		if p.Category == id {
			p.Category = reassignTo
			moved++
		}
	}
	delete(s.categories, id)
	return moved, nil
}

// === Posts ===

func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post.ID = uuid.NewString()
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	post.LastActivity = now
	if post.Tags == nil {
		post.Tags = []string{}
	}
	post.Upvotes = []string{}
	post.Downvotes = []string{}
	s.posts[post.ID] = copyPost(post)
	return nil
}

func (s *Store) GetPost(ctx context.Context, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyPost(post), nil
}

func (s *Store) ListPosts(ctx context.Context, opts storage.ListPostsOptions) ([]models.Post, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Post
	for _, p := range s.posts {
		if p.IsDeleted {
			continue
		}
		if opts.Category != "" && p.Category != opts.Category {
			continue
		}
		matched = append(matched, p)
	}
	sortPosts(matched, opts.Sort, "-lastActivity")
	total := int64(len(matched))
	return pagePosts(matched, opts.Page, opts.Limit), total, nil
}

func (s *Store) ListPostsByAuthor(ctx context.Context, authorID string, limit int64) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Post
	for _, p := range s.posts {
		if p.Author == authorID {
			matched = append(matched, p)
		}
	}
	sortPosts(matched, "-createdAt", "-createdAt")
	if limit > 0 && int64(len(matched)) > limit {
		matched = matched[:limit]
	}
	posts := make([]models.Post, 0, len(matched))
	for _, p := range matched {
		posts = append(posts, *copyPost(p))
	}
	return posts, nil
}

func (s *Store) UpdatePost(ctx context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[post.ID]; !ok {
		return storage.ErrNotFound
	}
	post.UpdatedAt = time.Now().UTC()
	post.LastActivity = post.UpdatedAt
	s.posts[post.ID] = copyPost(post)
	return nil
}

func (s *Store) SoftDeletePost(ctx context.Context, id, actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return storage.ErrNotFound
	}
	now := time.Now().UTC()
	post.IsDeleted = true
	post.DeletedBy = actorID
	post.DeletedAt = &now
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return storage.ErrNotFound
	}
	for commentID, c := range s.comments {
		if c.Post == id {
			delete(s.comments, commentID)
		}
	}
	delete(s.posts, id)
	return nil
}

func (s *Store) IncrementViews(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return storage.ErrNotFound
	}
	post.Views++
	return nil
}

func (s *Store) VotePost(ctx context.Context, id, voterID, voteType string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	change := models.ResolveVote(post.Upvotes, post.Downvotes, voterID, voteType)
	post.Upvotes = applyChange(post.Upvotes, voterID, change.AddUp, change.RemoveUp)
	post.Downvotes = applyChange(post.Downvotes, voterID, change.AddDown, change.RemoveDown)
	post.LastActivity = time.Now().UTC()
	return copyPost(post), nil
}

func (s *Store) SearchPosts(ctx context.Context, opts storage.SearchOptions) ([]models.Post, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(opts.Query)
	var matched []*models.Post
	for _, p := range s.posts {
		if p.IsDeleted {
			continue
		}
		if opts.Category != "" && p.Category != opts.Category {
			continue
		}
		if q != "" && !postMatches(p, q) {
			continue
		}
		matched = append(matched, p)
	}
	sortPosts(matched, opts.SortBy, "-createdAt")
	total := int64(len(matched))
	return pagePosts(matched, opts.Page, opts.Limit), total, nil
}

func postMatches(p *models.Post, q string) bool {
	if strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Content), q) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// === Comments ===

func (s *Store) AddComment(ctx context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[comment.Post]
	if !ok {
		return storage.ErrNotFound
	}
	comment.ID = uuid.NewString()
	now := time.Now().UTC()
	comment.CreatedAt = now
	comment.UpdatedAt = now
	comment.Upvotes = []string{}
	comment.Downvotes = []string{}
	s.comments[comment.ID] = copyComment(comment)

	post.CommentCount++
	post.LastActivity = now
	return nil
}

func (s *Store) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyComment(comment), nil
}

func (s *Store) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var comments []models.Comment
	for _, c := range s.comments {
		if c.Post == postID && !c.IsDeleted {
			comments = append(comments, *copyComment(c))
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	return comments, nil
}

func (s *Store) ListCommentsByAuthor(ctx context.Context, authorID string, limit int64) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var comments []models.Comment
	for _, c := range s.comments {
		if c.Author == authorID {
			comments = append(comments, *copyComment(c))
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
	if limit > 0 && int64(len(comments)) > limit {
		comments = comments[:limit]
	}
	return comments, nil
}

func (s *Store) UpdateComment(ctx context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[comment.ID]; !ok {
		return storage.ErrNotFound
	}
	comment.UpdatedAt = time.Now().UTC()
	s.comments[comment.ID] = copyComment(comment)
	return nil
}

func (s *Store) SoftDeleteComment(ctx context.Context, id, actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[id]
	if !ok {
		return storage.ErrNotFound
	}
	if comment.IsDeleted {
		return nil // decrement exactly once
	}
	now := time.Now().UTC()
	comment.IsDeleted = true
	comment.DeletedBy = actorID
	comment.DeletedAt = &now

	if post, ok := s.posts[comment.Post]; ok {
		post.CommentCount--
	}
	return nil
}

func (s *Store) VoteComment(ctx context.Context, id, voterID, voteType string) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	change := models.ResolveVote(comment.Upvotes, comment.Downvotes, voterID, voteType)
	comment.Upvotes = applyChange(comment.Upvotes, voterID, change.AddUp, change.RemoveUp)
	comment.Downvotes = applyChange(comment.Downvotes, voterID, change.AddDown, change.RemoveDown)
	return copyComment(comment), nil
}

// === Aggregates ===

func (s *Store) Stats(ctx context.Context) (*models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	stats := &models.Stats{
		TotalUsers:    int64(len(s.users)),
		TotalPosts:    int64(len(s.posts)),
		TotalComments: int64(len(s.comments)),
	}
	for _, u := range s.users {
		if !u.JoinDate.Before(midnight) {
			stats.NewUsersToday++
		}
		if u.IsBanned {
			stats.BannedUsers++
		}
	}
	for _, p := range s.posts {
		if !p.CreatedAt.Before(midnight) {
			stats.NewPostsToday++
		}
	}
	return stats, nil
}

// === Internal Helpers ===

func applyChange(set []string, id string, add, remove bool) []string {
	if remove {
		out := set[:0]
		for _, v := range set {
			if v != id {
				out = append(out, v)
			}
		}
		set = out
	}
	if add {
		set = append(set, id)
	}
	return set
}

func sortPosts(posts []*models.Post, key, fallback string) {
	field, desc := storage.ParseSort(key, fallback)
	sort.Slice(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		var less bool
		switch field {
		case "views":
			less = a.Views < b.Views
		case "commentCount":
			less = a.CommentCount < b.CommentCount
		case "createdAt":
			less = a.CreatedAt.Before(b.CreatedAt)
		default:
			less = a.LastActivity.Before(b.LastActivity)
		}
		if desc {
			return !less
		}
		return less
	})
}

func pagePosts(posts []*models.Post, page, limit int64) []models.Post {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	start := (page - 1) * limit
	if start >= int64(len(posts)) {
		return []models.Post{}
	}
	end := start + limit
	if end > int64(len(posts)) {
		end = int64(len(posts))
	}
	out := make([]models.Post, 0, end-start)
	for _, p := range posts[start:end] {
		out = append(out, *copyPost(p))
	}
	return out
}

func copyUser(u *models.User) *models.User {
	out := *u
	if u.BanExpiration != nil {
		exp := *u.BanExpiration
		out.BanExpiration = &exp
	}
	return &out
}

func copyCategory(c *models.Category) *models.Category {
	out := *c
	out.Moderators = append([]string(nil), c.Moderators...)
	return &out
}

func copyPost(p *models.Post) *models.Post {
	out := *p
	out.Tags = append([]string(nil), p.Tags...)
	out.Upvotes = append([]string(nil), p.Upvotes...)
	out.Downvotes = append([]string(nil), p.Downvotes...)
	return &out
}

func copyComment(c *models.Comment) *models.Comment {
	out := *c
	out.Upvotes = append([]string(nil), c.Upvotes...)
	out.Downvotes = append([]string(nil), c.Downvotes...)
	return &out
}
