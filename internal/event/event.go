// Package event defines the lifecycle events exchanged between services.
// Events are immutable fire-and-forget notifications carrying the minimal
// fields a consumer needs to build or remove its projection.
package event

import "time"

// Routing keys on the shared topic exchange. Consumers bind with exact keys;
// the exchange also supports "*" (one segment) and "#" (any segments).
const (
	PostCreated = "post.created"
	PostDeleted = "post.deleted"
)

// PostCreatedEvent is published after a post is persisted.
type PostCreatedEvent struct {
	PostID    string    `json:"postId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// PostDeletedEvent is published after a post is removed. MediaIDs lets the
// media service purge dependent blobs without querying the owning service.
type PostDeletedEvent struct {
	PostID   string   `json:"postId"`
	UserID   string   `json:"userId"`
	MediaIDs []string `json:"mediaIds"`
}
