// Package store implements the single source of truth for all
// relational entities.
package store

import (
	"time"

	"github.com/localtube/localtube/internal/domain"
	"github.com/localtube/localtube/internal/snapshot"
)

// Fixed ids for the cold-start fixture. The seed runs exactly once,
// when the snapshot store is empty; stable ids keep the fixture
// deterministic across installs.
const (
	// SeedUserID is the id of the privileged bootstrap account.
	SeedUserID = "0191a000-0000-7000-8000-5eed00000001"

	seedVideoGopherID = "0191a000-0000-7000-8000-5eed00000101"
	seedVideoTourID   = "0191a000-0000-7000-8000-5eed00000102"
	seedVideoLensID   = "0191a000-0000-7000-8000-5eed00000103"
)

// seedSnapshot builds the one-time cold-start fixture: one privileged
// account and a small starter catalog of remote-source videos. This is
// not a general seeding mechanism; it exists so a fresh install has
// something to render.
func seedSnapshot() *snapshot.Snapshot {
	now := time.Now().UTC()

	admin := &domain.User{
		ID:           SeedUserID,
		Username:     "localtube",
		DisplayName:  "LocalTube",
		Avatar:       domain.DefaultAvatar("localtube"),
		Password:     "localtube",
		Subscribers:  []string{},
		SubscribedTo: []string{},
		JoinedAt:     now,
	}

	starter := []struct {
		id, title, description, url, thumbnail string
		tags                                   []string
	}{
		{
			id:          seedVideoGopherID,
			title:       "Welcome to LocalTube",
			description: "A quick tour of your local video library.",
			url:         "https://cdn.localtube.example/starter/welcome.mp4",
			thumbnail:   "https://cdn.localtube.example/starter/welcome.jpg",
			tags:        []string{"intro", "tour"},
		},
		{
			id:          seedVideoTourID,
			title:       "Uploading your first video",
			description: "How uploads land in the local media store.",
			url:         "https://cdn.localtube.example/starter/uploading.mp4",
			thumbnail:   "https://cdn.localtube.example/starter/uploading.jpg",
			tags:        []string{"intro", "upload"},
		},
		{
			id:          seedVideoLensID,
			title:       "Subscriptions and reactions",
			description: "Following channels and reacting to videos.",
			url:         "https://cdn.localtube.example/starter/social.mp4",
			thumbnail:   "https://cdn.localtube.example/starter/social.jpg",
			tags:        []string{"intro", "social"},
		},
	}

	// Catalog order is most-recent-first; seed entries share a
	// timestamp and keep their declared order.
	videos := make([]*domain.Video, 0, len(starter))
	for _, v := range starter {
		videos = append(videos, &domain.Video{
			ID:          v.id,
			UploaderID:  admin.ID,
			Title:       v.title,
			Description: v.description,
			Source:      domain.RemoteSource(v.url),
			Thumbnail:   v.thumbnail,
			Views:       0,
			Likes:       []string{},
			Dislikes:    []string{},
			CreatedAt:   now,
			Tags:        v.tags,
		})
	}

	return &snapshot.Snapshot{
		Users:    []*domain.User{admin},
		Videos:   videos,
		Comments: []*domain.Comment{},
	}
}
