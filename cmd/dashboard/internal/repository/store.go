package repository

import (
	"context"
)

// FrameStore keeps the latest frame per section and fans new frames out to
// every dashboard instance.
type FrameStore interface {
	GetSnapshots(ctx context.Context, sections []string) ([]string, error)
	PublishFrame(ctx context.Context, section string, payload []byte) error
	RunPubSub(ctx context.Context, onMessage func(section string, payload string))
	Close() error
}

// ListStore persists the ordered watchlist.
type ListStore interface {
	Load(ctx context.Context) []string
	Save(ctx context.Context, symbols []string) error
}
