// agora/storage/seed.go
package storage

import (
	"context"
	"fmt"
	"time"

	"agora/models"
	"agora/utils"
)

var defaultCategories = []models.Category{
	{Name: "General Discussion", Description: "General topics and discussions about anything and everything", Icon: "💬", Order: 1},
	{Name: "Technology", Description: "Discussions about programming, software, hardware, and tech news", Icon: "💻", Order: 2},
	{Name: "Gaming", Description: "Video games, gaming news, and gaming communities", Icon: "🎮", Order: 3},
	{Name: "Movies & TV Shows", Description: "Discuss your favorite movies, TV shows, and entertainment", Icon: "🎬", Order: 4},
	{Name: "Music", Description: "Share and discuss music, artists, and concerts", Icon: "🎵", Order: 5},
	{Name: "Sports", Description: "Sports news, events, and discussions", Icon: "⚽", Order: 6},
	{Name: "Art & Creative", Description: "Share your artwork, photography, and creative projects", Icon: "🎨", Order: 7},
	{Name: "Help & Support", Description: "Get help from the community or provide assistance to others", Icon: "🆘", Order: 8},
}

// SeedCategories creates the default category set when the store has none.
// Returns the id of the first category, which doubles as the default
// reassignment target for category deletion.
func SeedCategories(ctx context.Context, store Store) (string, error) {
	existing, err := store.ListCategories(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list categories for seeding: %w", err)
	}
	if len(existing) > 0 {
		return existing[0].ID, nil
	}

	now := time.Now().UTC()
	var firstID string
	for _, c := range defaultCategories {
		cat := c
		cat.Slug = utils.Slugify(cat.Name)
		cat.Moderators = []string{}
		cat.IsActive = true
		cat.CreatedAt = now
		cat.UpdatedAt = now
		if err := store.CreateCategory(ctx, &cat); err != nil {
			return "", fmt.Errorf("failed to seed category %q: %w", cat.Name, err)
		}
		if firstID == "" {
			firstID = cat.ID
		}
	}
	return firstID, nil
}
