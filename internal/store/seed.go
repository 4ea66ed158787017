package store

import (
	"time"

	"clix/internal/model"
)

// SeedPosts returns the fixed sample feed used when the post slot has never
// been written. Timestamps are relative so the feed always looks recent.
func SeedPosts() []model.Post {
	now := time.Now()
	return []model.Post{
		{
			ID:             "p1",
			UserID:         "u1",
			AuthorName:     "Alex River",
			AuthorUsername: "ariver",
			AuthorAvatar:   "https://picsum.photos/seed/alex/200",
			Content:        "Just joined Clix! This UI is so fast. 🔥 #NewBeginnings",
			Likes:          24,
			Replies:        3,
			Reposts:        2,
			CreatedAt:      now.Add(-1 * time.Hour),
		},
		{
			ID:             "p2",
			UserID:         "u2",
			AuthorName:     "Gemini Expert",
			AuthorUsername: "ai_guru",
			AuthorAvatar:   "https://picsum.photos/seed/gemini/200",
			Content:        "The new Gemini models are changing everything about how we build software. #AI #Future",
			MediaURL:       "https://picsum.photos/seed/ai/800/400",
			Likes:          156,
			Replies:        12,
			Reposts:        45,
			CreatedAt:      now.Add(-2 * time.Hour),
		},
	}
}

// seedRegistry returns the initial username registry, claiming the seed
// authors' handles so new users cannot collide with them.
func seedRegistry() map[string]string {
	return map[string]string{
		"ariver":  "u1",
		"ai_guru": "u2",
	}
}
