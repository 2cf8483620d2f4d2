// Package events carries domain events from the services to their
// side-channel consumers, either in process or through Kafka.
package events

import (
	"context"
	"time"
)

// PostCreated is emitted once a new post has been persisted.
type PostCreated struct {
	PostID     uint      `json:"postId"`
	Title      string    `json:"title"`
	ImageURL   string    `json:"imageUrl"`
	OwnerID    uint      `json:"ownerId"`
	OwnerName  string    `json:"ownerName"`
	OwnerEmail string    `json:"ownerEmail"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Handler func(ctx context.Context, evt PostCreated) error

// Publisher hands events to a transport. PublishPostCreated never blocks
// on delivery and never fails the caller; transport errors are logged.
type Publisher interface {
	PublishPostCreated(ctx context.Context, evt PostCreated)
	Close() error
}
