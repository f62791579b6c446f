// agora/client/client.go

// Package client is a typed HTTP client for the agora API. It wraps every
// server operation in a method, carries the bearer token between calls, and
// turns error bodies into APIError values.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"agora/models"
)

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client talks to one agora server. Token is set by Register and Login and
// sent on every subsequent request; it is safe to set manually for a stored
// session.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
}

// New creates a client for the given base URL, e.g. "http://localhost:8080".
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		buf = bytes.NewBuffer(data)
	} else {
		buf = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var msg models.MessageResponse
		if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil || msg.Message == "" {
			msg.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg.Message}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// --- Auth ---

// Register creates an account and stores the issued token on the client.
func (c *Client) Register(ctx context.Context, username, email, password string) (*models.AuthResponse, error) {
	var out models.AuthResponse
	req := models.RegisterRequest{Username: username, Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &out); err != nil {
		return nil, err
	}
	c.Token = out.Token
	return &out, nil
}

// Login authenticates and stores the issued token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	var out models.AuthResponse
	req := models.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &out); err != nil {
		return nil, err
	}
	c.Token = out.Token
	return &out, nil
}

// Logout revokes the current token and clears it from the client.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return err
	}
	c.Token = ""
	return nil
}

// Me returns the authenticated user's own record.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Forum ---

func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if err := c.do(ctx, http.MethodGet, "/forum/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Category(ctx context.Context, id string) (*models.Category, error) {
	var out models.Category
	if err := c.do(ctx, http.MethodGet, "/forum/categories/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CategoryPosts lists a category page. Sort accepts the API's sort keys,
// e.g. "-lastActivity" or "views"; pass "" for the default.
func (c *Client) CategoryPosts(ctx context.Context, categoryID string, page int64, sort string) (*models.PostPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.FormatInt(page, 10))
	}
	if sort != "" {
		q.Set("sort", sort)
	}
	path := "/forum/categories/" + url.PathEscape(categoryID) + "/posts"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var out models.PostPage
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Post(ctx context.Context, id string) (*models.PostDetail, error) {
	var out models.PostDetail
	if err := c.do(ctx, http.MethodGet, "/forum/posts/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreatePost(ctx context.Context, req models.CreatePostRequest) (*models.Post, error) {
	var out models.Post
	if err := c.do(ctx, http.MethodPost, "/forum/posts", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePost(ctx context.Context, id string, req models.UpdatePostRequest) (*models.Post, error) {
	var out models.Post
	if err := c.do(ctx, http.MethodPut, "/forum/posts/"+url.PathEscape(id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeletePost(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/forum/posts/"+url.PathEscape(id), nil, nil)
}

// PinPost toggles a post's pinned flag. Requires a moderator token.
func (c *Client) PinPost(ctx context.Context, id string) (*models.Post, error) {
	var out models.Post
	if err := c.do(ctx, http.MethodPost, "/forum/posts/"+url.PathEscape(id)+"/pin", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PermanentDeletePost(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/forum/posts/"+url.PathEscape(id)+"/permanent", nil, nil)
}

// VotePost toggles the caller's vote; voteType is "up" or "down".
func (c *Client) VotePost(ctx context.Context, id, voteType string) (*models.Post, error) {
	var out models.Post
	req := models.VoteRequest{VoteType: voteType}
	if err := c.do(ctx, http.MethodPost, "/forum/posts/"+url.PathEscape(id)+"/vote", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateComment(ctx context.Context, postID string, req models.CreateCommentRequest) (*models.Comment, error) {
	var out models.Comment
	path := "/forum/posts/" + url.PathEscape(postID) + "/comments"
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateComment(ctx context.Context, id string, req models.UpdateCommentRequest) (*models.Comment, error) {
	var out models.Comment
	if err := c.do(ctx, http.MethodPut, "/forum/comments/"+url.PathEscape(id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteComment(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/forum/comments/"+url.PathEscape(id), nil, nil)
}

func (c *Client) VoteComment(ctx context.Context, id, voteType string) (*models.Comment, error) {
	var out models.Comment
	req := models.VoteRequest{VoteType: voteType}
	if err := c.do(ctx, http.MethodPost, "/forum/comments/"+url.PathEscape(id)+"/vote", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search runs a free-text search. Category and sortBy may be empty.
func (c *Client) Search(ctx context.Context, query, category, sortBy string, page int64) (*models.SearchPage, error) {
	q := url.Values{}
	q.Set("q", query)
	if category != "" {
		q.Set("category", category)
	}
	if sortBy != "" {
		q.Set("sortBy", sortBy)
	}
	if page > 0 {
		q.Set("page", strconv.FormatInt(page, 10))
	}
	var out models.SearchPage
	if err := c.do(ctx, http.MethodGet, "/forum/search?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- User ---

func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/user/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodPut, "/user/profile", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MyPosts(ctx context.Context) ([]models.Post, error) {
	var out []models.Post
	if err := c.do(ctx, http.MethodGet, "/user/posts", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MyComments(ctx context.Context) ([]models.Comment, error) {
	var out []models.Comment
	if err := c.do(ctx, http.MethodGet, "/user/comments", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PublicProfile(ctx context.Context, username string) (*models.PublicProfile, error) {
	var out models.PublicProfile
	if err := c.do(ctx, http.MethodGet, "/user/profile/"+url.PathEscape(username), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Admin ---

func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := c.do(ctx, http.MethodGet, "/admin/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateRole(ctx context.Context, userID, role string) (*models.User, error) {
	var out models.User
	req := models.UpdateRoleRequest{Role: role}
	if err := c.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(userID)+"/role", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BanUser bans an account for durationDays; zero means permanent.
func (c *Client) BanUser(ctx context.Context, userID, reason string, durationDays int) (*models.User, error) {
	var out models.User
	req := models.BanRequest{Reason: reason, Duration: durationDays}
	if err := c.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(userID)+"/ban", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UnbanUser(ctx context.Context, userID string) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(userID)+"/unban", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(userID), nil, nil)
}

func (c *Client) Stats(ctx context.Context) (*models.Stats, error) {
	var out models.Stats
	if err := c.do(ctx, http.MethodGet, "/admin/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCategory(ctx context.Context, req models.CategoryRequest) (*models.Category, error) {
	var out models.Category
	if err := c.do(ctx, http.MethodPost, "/admin/categories", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCategory(ctx context.Context, id string, req models.CategoryRequest) (*models.Category, error) {
	var out models.Category
	if err := c.do(ctx, http.MethodPut, "/admin/categories/"+url.PathEscape(id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/categories/"+url.PathEscape(id), nil, nil)
}
