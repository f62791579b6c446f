// agora/handlers/admin_test.go

package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"agora/models"
)

// setupAdmin registers an account and promotes it to admin.
func setupAdmin(t *testing.T, env *testEnv) string {
	t.Helper()
	token, user := env.registerUser(t, "admin")
	env.promote(t, user.ID, models.RoleAdmin)
	return token
}

func TestAdminRoutesRequireRole(t *testing.T) {
	env := setupTestApp(t)
	userToken, _ := env.registerUser(t, "pleb")
	modToken, mod := env.registerUser(t, "mod")
	env.promote(t, mod.ID, models.RoleModerator)

	// Regular users are shut out entirely.
	rr := env.doJSON(t, http.MethodGet, "/admin/stats", userToken, nil)
	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for regular user on /admin/stats, got %d", rr.Code)
	}

	// Moderators can ban but the dashboard surface is admin only.
	_, target := env.registerUser(t, "target")
	rr = env.doJSON(t, http.MethodPut, "/admin/users/"+target.ID+"/ban", modToken, models.BanRequest{Reason: "spam"})
	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200 for moderator ban, got %d", rr.Code)
	}
	for _, path := range []string{"/admin/stats", "/admin/users"} {
		rr = env.doJSON(t, http.MethodGet, path, modToken, nil)
		if rr.Code != http.StatusForbidden {
			t.Errorf("Expected 403 for moderator on %s, got %d", path, rr.Code)
		}
	}
}

func TestListUsersExcludesPasswords(t *testing.T) {
	env := setupTestApp(t)
	adminToken := setupAdmin(t, env)
	env.registerUser(t, "alice")

	rr := env.doJSON(t, http.MethodGet, "/admin/users", adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var users []models.User
	decodeBody(t, rr, &users)
	if len(users) != 2 {
		t.Fatalf("Expected 2 users, got %d", len(users))
	}
	for _, u := range users {
		if u.Password != "" {
			t.Errorf("Password leaked for user %q", u.Username)
		}
	}
}

func TestUpdateRole(t *testing.T) {
	env := setupTestApp(t)
	adminToken := setupAdmin(t, env)
	_, alice := env.registerUser(t, "alice")

	rr := env.doJSON(t, http.MethodPut, "/admin/users/"+alice.ID+"/role", adminToken, models.UpdateRoleRequest{Role: models.RoleModerator})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var updated models.User
	decodeBody(t, rr, &updated)
	if updated.Role != models.RoleModerator {
		t.Errorf("Expected moderator role, got %q", updated.Role)
	}

	rr = env.doJSON(t, http.MethodPut, "/admin/users/"+alice.ID+"/role", adminToken, models.UpdateRoleRequest{Role: "superuser"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid role, got %d", rr.Code)
	}
}

func TestBanAndUnban(t *testing.T) {
	env := setupTestApp(t)
	adminToken := setupAdmin(t, env)
	_, alice := env.registerUser(t, "alice")

	// Timed ban.
	rr := env.doJSON(t, http.MethodPut, "/admin/users/"+alice.ID+"/ban", adminToken, models.BanRequest{Reason: "spam", Duration: 7})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 from ban, got %d: %s", rr.Code, rr.Body.String())
	}
	var banned models.User
	decodeBody(t, rr, &banned)
	if !banned.IsBanned || banned.BanReason != "spam" {
		t.Error("Expected ban fields set")
	}
	if banned.BanExpiration == nil {
		t.Fatal("Expected a ban expiration for a timed ban")
	}
	wantExp := time.Now().AddDate(0, 0, 7)
	if diff := banned.BanExpiration.Sub(wantExp); diff < -time.Minute || diff > time.Minute {
		t.Errorf("Ban expiration off by %v", diff)
	}

	// Permanent ban has no expiration.
	rr = env.doJSON(t, http.MethodPut, "/admin/users/"+alice.ID+"/ban", adminToken, models.BanRequest{Reason: "worse spam"})
	decodeBody(t, rr, &banned)
	if banned.BanExpiration != nil {
		t.Error("Expected no expiration for a permanent ban")
	}

	// Unban clears everything.
	rr = env.doJSON(t, http.MethodPut, "/admin/users/"+alice.ID+"/unban", adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 from unban, got %d", rr.Code)
	}
	var unbanned models.User
	decodeBody(t, rr, &unbanned)
	if unbanned.IsBanned || unbanned.BanReason != "" || unbanned.BanExpiration != nil {
		t.Error("Expected ban fields cleared after unban")
	}
}

func TestCannotBanAdmin(t *testing.T) {
	env := setupTestApp(t)
	adminToken := setupAdmin(t, env)
	_, other := env.registerUser(t, "other")
	env.promote(t, other.ID, models.RoleAdmin)

	rr := env.doJSON(t, http.MethodPut, "/admin/users/"+other.ID+"/ban", adminToken, models.BanRequest{Reason: "power struggle"})
	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected 403 when banning an admin, got %d", rr.Code)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	env := setupTestApp(t)
	adminToken := setupAdmin(t, env)
	aliceToken, alice := env.registerUser(t, "alice")
	post := env.createPost(t, aliceToken, "alice's post")

	rr := env.doJSON(t, http.MethodDelete, "/admin/users/"+alice.ID, adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 from delete, got %d: %s", rr.Code, rr.Body.String())
	}

	if _, err := env.app.store.GetUser(context.Background(), alice.ID); err == nil {
		t.Error("Expected user removed")
	}
	if _, err := env.app.store.GetPost(context.Background(), post.ID); err == nil {
		t.Error("Expected user's posts removed")
	}
	// The deleted user's token is dead.
	rr = env.doJSON(t, http.MethodGet, "/auth/me", aliceToken, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for deleted user's token, got %d", rr.Code)
	}
}

func TestAdminCannotDeleteSelf(t *testing.T) {
	env := setupTestApp(t)
	adminToken := setupAdmin(t, env)

	me := env.doJSON(t, http.MethodGet, "/auth/me", adminToken, nil)
	var admin models.User
	decodeBody(t, me, &admin)

	rr := env.doJSON(t, http.MethodDelete, "/admin/users/"+admin.ID, adminToken, nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for self-deletion, got %d", rr.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	env := setupTestApp(t)
	adminToken := setupAdmin(t, env)
	token, _ := env.registerUser(t, "alice")
	post := env.createPost(t, token, "fresh")
	env.createComment(t, token, post.ID, "hi")

	rr := env.doJSON(t, http.MethodGet, "/admin/stats", adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var stats models.Stats
	decodeBody(t, rr, &stats)
	if stats.TotalUsers != 2 || stats.TotalPosts != 1 || stats.TotalComments != 1 {
		t.Errorf("Unexpected totals: %+v", stats)
	}
	if stats.NewUsersToday != 2 || stats.NewPostsToday != 1 {
		t.Errorf("Unexpected today counters: %+v", stats)
	}
}

func TestCategoryCRUD(t *testing.T) {
	env := setupTestApp(t)
	adminToken := setupAdmin(t, env)

	rr := env.doJSON(t, http.MethodPost, "/admin/categories", adminToken, models.CategoryRequest{
		Name: "Science & Nature", Description: "lab notes", Order: 9,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created models.Category
	decodeBody(t, rr, &created)
	if created.Slug != "science-nature" {
		t.Errorf("Expected slug science-nature, got %q", created.Slug)
	}

	rr = env.doJSON(t, http.MethodPut, "/admin/categories/"+created.ID, adminToken, models.CategoryRequest{
		Name: "Science", Description: "tightened up", Order: 9,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 from update, got %d", rr.Code)
	}
	var updated models.Category
	decodeBody(t, rr, &updated)
	if updated.Slug != "science" {
		t.Errorf("Expected slug regenerated on rename, got %q", updated.Slug)
	}

	rr = env.doJSON(t, http.MethodPost, "/admin/categories", adminToken, models.CategoryRequest{Name: ""})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty name, got %d", rr.Code)
	}
}

func TestDeleteCategoryReassignsPosts(t *testing.T) {
	env := setupTestApp(t)
	adminToken := setupAdmin(t, env)
	token, _ := env.registerUser(t, "alice")

	rr := env.doJSON(t, http.MethodPost, "/admin/categories", adminToken, models.CategoryRequest{Name: "Doomed", Order: 99})
	var doomed models.Category
	decodeBody(t, rr, &doomed)

	post := env.doJSON(t, http.MethodPost, "/forum/posts", token, models.CreatePostRequest{
		Title: "stranded", Content: "where do I go", CategoryID: doomed.ID,
	})
	var created models.Post
	decodeBody(t, post, &created)

	rr = env.doJSON(t, http.MethodDelete, "/admin/categories/"+doomed.ID, adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 from category delete, got %d: %s", rr.Code, rr.Body.String())
	}

	moved, err := env.app.store.GetPost(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Failed to reload post: %v", err)
	}
	if moved.Category != env.app.defaultCategoryID {
		t.Errorf("Expected post reassigned to default category, got %q", moved.Category)
	}
}

func TestDeleteDefaultCategoryRefused(t *testing.T) {
	env := setupTestApp(t)
	adminToken := setupAdmin(t, env)

	rr := env.doJSON(t, http.MethodDelete, "/admin/categories/"+env.app.defaultCategoryID, adminToken, nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 when deleting the default category, got %d", rr.Code)
	}
}
