// agora/models/api.go
package models

// Request and response shapes shared by the HTTP handlers and the API client.

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type CreatePostRequest struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	CategoryID string   `json:"categoryId"`
	Tags       []string `json:"tags"`
}

type UpdatePostRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

type CreateCommentRequest struct {
	Content         string `json:"content"`
	ParentCommentID string `json:"parentCommentId"`
}

type UpdateCommentRequest struct {
	Content string `json:"content"`
}

type VoteRequest struct {
	VoteType string `json:"voteType"`
}

type UpdateProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
	Bio      string `json:"bio"`
}

type UpdateRoleRequest struct {
	Role string `json:"role"`
}

type BanRequest struct {
	Reason   string `json:"reason"`
	Duration int    `json:"duration"` // days; 0 means permanent
}

type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Order       int    `json:"order"`
}

// PostPage is the paginated listing envelope for category listings.
type PostPage struct {
	Posts       []Post `json:"posts"`
	TotalPages  int64  `json:"totalPages"`
	CurrentPage int64  `json:"currentPage"`
}

// SearchPage extends PostPage with the total match count.
type SearchPage struct {
	Posts       []Post `json:"posts"`
	TotalPages  int64  `json:"totalPages"`
	CurrentPage int64  `json:"currentPage"`
	Total       int64  `json:"total"`
}

// PostDetail is the single-post view: the post plus its live comments.
type PostDetail struct {
	Post     *Post     `json:"post"`
	Comments []Comment `json:"comments"`
}

// PublicProfile is the public user view with recent activity.
type PublicProfile struct {
	User           *User     `json:"user"`
	RecentPosts    []Post    `json:"recentPosts"`
	RecentComments []Comment `json:"recentComments"`
}

// MessageResponse carries a human-readable outcome for mutations without a
// richer payload, and doubles as the error body ("message" plus the raw
// error string on server failures).
type MessageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
