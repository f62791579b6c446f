// agora/models/models.go
package models

import (
	"time"
)

// --- Roles ---

const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// ValidRole reports whether s is one of the known roles.
func ValidRole(s string) bool {
	return s == RoleUser || s == RoleModerator || s == RoleAdmin
}

// --- Core Data Models ---

type User struct {
	ID            string     `bson:"_id,omitempty" json:"id"`
	Username      string     `bson:"username" json:"username"`
	Email         string     `bson:"email" json:"email,omitempty"`
	Password      string     `bson:"password" json:"password,omitempty"`
	Role          string     `bson:"role" json:"role"`
	Avatar        string     `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Bio           string     `bson:"bio,omitempty" json:"bio,omitempty"`
	Reputation    int        `bson:"reputation" json:"reputation"`
	IsBanned      bool       `bson:"isBanned" json:"isBanned"`
	BanReason     string     `bson:"banReason,omitempty" json:"banReason,omitempty"`
	BanExpiration *time.Time `bson:"banExpiration,omitempty" json:"banExpiration,omitempty"`
	JoinDate      time.Time  `bson:"joinDate" json:"joinDate"`
}

// CanModerate reports whether the user's role grants moderation capability.
func (u *User) CanModerate() bool {
	return u.Role == RoleModerator || u.Role == RoleAdmin
}

// IsAdmin reports whether the user's role grants admin capability.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BanActive reports whether the user is currently banned. A ban with an
// expiration in the past no longer blocks the user.
func (u *User) BanActive(now time.Time) bool {
	if !u.IsBanned {
		return false
	}
	return u.BanExpiration == nil || u.BanExpiration.After(now)
}

// Sanitize strips credential material before the user is written to a response.
func (u *User) Sanitize() {
	u.Password = ""
}

// SanitizePublic additionally hides the email for public profile views.
func (u *User) SanitizePublic() {
	u.Sanitize()
	u.Email = ""
}

type Category struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description" json:"description"`
	Slug        string    `bson:"slug" json:"slug"`
	Icon        string    `bson:"icon,omitempty" json:"icon,omitempty"`
	Order       int       `bson:"order" json:"order"`
	Moderators  []string  `bson:"moderators" json:"moderators"`
	IsActive    bool      `bson:"isActive" json:"isActive"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

type Post struct {
	ID           string     `bson:"_id,omitempty" json:"id"`
	Title        string     `bson:"title" json:"title"`
	Content      string     `bson:"content" json:"content"`
	Author       string     `bson:"author" json:"author"`
	Category     string     `bson:"category" json:"category"`
	Tags         []string   `bson:"tags" json:"tags"`
	Upvotes      []string   `bson:"upvotes" json:"upvotes"`
	Downvotes    []string   `bson:"downvotes" json:"downvotes"`
	Views        int64      `bson:"views" json:"views"`
	CommentCount int64      `bson:"commentCount" json:"commentCount"`
	IsDeleted    bool       `bson:"isDeleted" json:"isDeleted"`
	DeletedBy    string     `bson:"deletedBy,omitempty" json:"deletedBy,omitempty"`
	DeletedAt    *time.Time `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	IsEdited     bool       `bson:"isEdited" json:"isEdited"`
	LastEditedBy string     `bson:"lastEditedBy,omitempty" json:"lastEditedBy,omitempty"`
	LastEditedAt *time.Time `bson:"lastEditedAt,omitempty" json:"lastEditedAt,omitempty"`
	IsPinned     bool       `bson:"isPinned" json:"isPinned"`
	LastActivity time.Time  `bson:"lastActivity" json:"lastActivity"`
	CreatedAt    time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time  `bson:"updatedAt" json:"updatedAt"`

	// Populated in responses only.
	AuthorInfo   *UserRef     `bson:"-" json:"authorInfo,omitempty"`
	CategoryInfo *CategoryRef `bson:"-" json:"categoryInfo,omitempty"`
}

type Comment struct {
	ID            string     `bson:"_id,omitempty" json:"id"`
	Content       string     `bson:"content" json:"content"`
	Author        string     `bson:"author" json:"author"`
	Post          string     `bson:"post" json:"post"`
	ParentComment string     `bson:"parentComment,omitempty" json:"parentComment,omitempty"`
	Upvotes       []string   `bson:"upvotes" json:"upvotes"`
	Downvotes     []string   `bson:"downvotes" json:"downvotes"`
	IsDeleted     bool       `bson:"isDeleted" json:"isDeleted"`
	DeletedBy     string     `bson:"deletedBy,omitempty" json:"deletedBy,omitempty"`
	DeletedAt     *time.Time `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	IsEdited      bool       `bson:"isEdited" json:"isEdited"`
	LastEditedBy  string     `bson:"lastEditedBy,omitempty" json:"lastEditedBy,omitempty"`
	LastEditedAt  *time.Time `bson:"lastEditedAt,omitempty" json:"lastEditedAt,omitempty"`
	CreatedAt     time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time  `bson:"updatedAt" json:"updatedAt"`

	// Populated in responses only.
	AuthorInfo *UserRef `bson:"-" json:"authorInfo,omitempty"`
	PostTitle  string   `bson:"-" json:"postTitle,omitempty"`
}

// UserRef is the minimal author projection embedded in post and comment views.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// CategoryRef is the minimal category projection embedded in post views.
type CategoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// --- Auth & System Models ---

type Session struct {
	Token     string    `bson:"_id" json:"token"`
	UserID    string    `bson:"userId" json:"userId"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
}

// Expired reports whether the session is past its expiration.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

type Stats struct {
	TotalUsers    int64 `json:"totalUsers"`
	TotalPosts    int64 `json:"totalPosts"`
	TotalComments int64 `json:"totalComments"`
	NewUsersToday int64 `json:"newUsersToday"`
	NewPostsToday int64 `json:"newPostsToday"`
	BannedUsers   int64 `json:"bannedUsers"`
}

// --- Voting ---

const (
	VoteUp   = "up"
	VoteDown = "down"
)

// VoteChange describes the set-membership updates a vote toggle produces.
type VoteChange struct {
	AddUp      bool
	RemoveUp   bool
	AddDown    bool
	RemoveDown bool
}

// ResolveVote computes the toggle transition for a voter over the {none,
// upvoted, downvoted} state machine: repeating a vote returns to none,
// voting the opposite direction switches sets. The invariant that a voter
// belongs to at most one set is preserved by always removing membership
// from the opposite set when adding.
func ResolveVote(upvotes, downvotes []string, voterID, voteType string) VoteChange {
	var change VoteChange
	if voteType == VoteUp {
		if contains(upvotes, voterID) {
			change.RemoveUp = true
		} else {
			change.AddUp = true
			change.RemoveDown = true
		}
	} else {
		if contains(downvotes, voterID) {
			change.RemoveDown = true
		} else {
			change.AddDown = true
			change.RemoveUp = true
		}
	}
	return change
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
