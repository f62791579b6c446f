// agora/models/models_test.go
package models

import (
	"testing"
	"time"
)

func TestResolveVote(t *testing.T) {
	cases := []struct {
		name      string
		upvotes   []string
		downvotes []string
		voteType  string
		want      VoteChange
	}{
		{"first upvote", nil, nil, VoteUp, VoteChange{AddUp: true, RemoveDown: true}},
		{"repeat upvote clears", []string{"v"}, nil, VoteUp, VoteChange{RemoveUp: true}},
		{"first downvote", nil, nil, VoteDown, VoteChange{AddDown: true, RemoveUp: true}},
		{"repeat downvote clears", nil, []string{"v"}, VoteDown, VoteChange{RemoveDown: true}},
		{"switch up to down", []string{"v"}, nil, VoteDown, VoteChange{AddDown: true, RemoveUp: true}},
		{"switch down to up", nil, []string{"v"}, VoteUp, VoteChange{AddUp: true, RemoveDown: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveVote(tc.upvotes, tc.downvotes, "v", tc.voteType)
			if got != tc.want {
				t.Errorf("ResolveVote() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestBanActive(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	cases := []struct {
		name string
		user User
		want bool
	}{
		{"not banned", User{}, false},
		{"permanent ban", User{IsBanned: true}, true},
		{"timed ban in force", User{IsBanned: true, BanExpiration: &future}, true},
		{"expired ban", User{IsBanned: true, BanExpiration: &past}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.user.BanActive(now); got != tc.want {
				t.Errorf("BanActive() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	u := User{Username: "alice", Email: "alice@example.com", Password: "hash"}
	u.Sanitize()
	if u.Password != "" {
		t.Error("Sanitize must clear the password")
	}
	if u.Email == "" {
		t.Error("Sanitize must keep the email for the owner's own view")
	}

	u = User{Username: "alice", Email: "alice@example.com", Password: "hash"}
	u.SanitizePublic()
	if u.Email != "" || u.Password != "" {
		t.Error("SanitizePublic must clear both email and password")
	}
}

func TestRoleChecks(t *testing.T) {
	if !(&User{Role: RoleAdmin}).CanModerate() || !(&User{Role: RoleModerator}).CanModerate() {
		t.Error("Admins and moderators can moderate")
	}
	if (&User{Role: RoleUser}).CanModerate() {
		t.Error("Regular users cannot moderate")
	}
	if !(&User{Role: RoleAdmin}).IsAdmin() || (&User{Role: RoleModerator}).IsAdmin() {
		t.Error("Only admins are admins")
	}
	if ValidRole("superuser") {
		t.Error("Unknown roles are invalid")
	}
}
