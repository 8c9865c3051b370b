package dashboard

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/noemamarkets/pulse/cmd/dashboard/internal/repository"
	"github.com/noemamarkets/pulse/pkg/protocol"
)

// FramePublisher serializes a section view into a frame and hands it to the
// frame store, which keeps the snapshot and fans it out.
type FramePublisher struct {
	store repository.FrameStore
}

func NewFramePublisher(store repository.FrameStore) *FramePublisher {
	return &FramePublisher{store: store}
}

func (p *FramePublisher) Publish(ctx context.Context, section string, view interface{}) error {
	payload, err := json.Marshal(protocol.NewFrame(section, view))
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", section, err)
	}
	if err := p.store.PublishFrame(ctx, section, payload); err != nil {
		return fmt.Errorf("publish %s frame: %w", section, err)
	}
	return nil
}
