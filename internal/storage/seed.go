// internal/storage/seed.go
// Seed data for the gallery view. The store does not bake these in; callers
// pass them to NewMemory / NewPostgres explicitly so tests can start empty.
package storage

import (
	"fmt"
	"time"

	"github.com/badaiwinata/Proof-of-Vibes/internal/model"
	"github.com/google/uuid"
)

// SampleCollectibles returns the demo records shown in the gallery before any
// booth session has run. Every three records share a collection and every
// third record is pre-claimed, mirroring a small event's worth of activity.
func SampleCollectibles() []model.Collectible {
	templates := []string{"classic", "neon", "retro", "minimal"}
	messages := []string{
		"Best night ever!",
		"Squad goals achieved!",
		"Mind = blown!",
		"Neon dreams!",
		"Epic adventure!",
		"Memories made!",
		"VIP experience!",
		"Dance all night!",
		"Forever vibes!",
	}
	vibeTags := [][]string{
		{"excited", "music"},
		{"friends", "memories"},
		{"tech", "future"},
		{"glow", "party"},
		{"adventure", "experience"},
		{"celebration", "fun"},
		{"vip", "exclusive"},
		{"dance", "nightlife"},
		{"forever", "moments"},
	}
	imageURLs := []string{
		"https://images.unsplash.com/photo-1601288496920-b6154fe3626a",
		"https://images.unsplash.com/photo-1529156069898-49953e39b3ac",
		"https://images.unsplash.com/photo-1617802690992-15d93263d3a9",
		"https://images.unsplash.com/photo-1541546006121-5c3bc5e8c7b9",
		"https://images.unsplash.com/photo-1470229722913-7c0e2dbbafd3",
		"https://images.unsplash.com/photo-1496024840928-4c417adf211d",
		"https://images.unsplash.com/photo-1493225457124-a3eb161ffa5f",
		"https://images.unsplash.com/photo-1516450360452-9312f5e86fc7",
		"https://images.unsplash.com/photo-1514525253161-7a46d19cd819",
	}
	eventNames := []string{"VIP Night", "Tech Conference", "Music Festival"}

	now := time.Now().UTC()
	seeds := make([]model.Collectible, 0, 9)
	for i := 0; i < 9; i++ {
		// Stagger creation times so the gallery has a believable timeline
		createdAt := now.Add(-time.Duration(5+i*13) * time.Minute)
		claimed := i%3 == 0

		c := model.Collectible{
			ImageURL:      imageURLs[i],
			Message:       messages[i],
			Template:      templates[i%len(templates)],
			Vibes:         vibeTags[i],
			Claimed:       claimed,
			ClaimToken:    uuid.New().String(),
			CollectionID:  fmt.Sprintf("event-%d", i/3+1),
			CertificateID: fmt.Sprintf("POV-S%d-%06d", i+1, createdAt.Unix()%1000000),
			EventName:     eventNames[i/3],
			EventDate:     createdAt.Format("2006-01-02"),
			CreatedAt:     createdAt,
		}
		if claimed {
			claimedAt := createdAt.Add(3 * time.Minute)
			c.ClaimedAt = &claimedAt
			c.RecipientName = "Event Attendee"
		}
		seeds = append(seeds, c)
	}
	return seeds
}
