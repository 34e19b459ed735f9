package ws

import (
	"context"
	"testing"

	"github.com/arbiterhq/arbiter/internal/domain/decision"
)

func TestBroadcastNoConnections(t *testing.T) {
	h := NewHub()

	// Broadcasting with no connected clients must not panic or block.
	h.BroadcastEvent(context.Background(), EventCheckpointCreated, CheckpointCreatedEvent{
		Checkpoint: decision.Checkpoint{ID: "cp-1", Type: decision.TypePlan},
	})

	if got := h.ConnectionCount(); got != 0 {
		t.Errorf("ConnectionCount = %d, want 0", got)
	}
}

func TestBroadcastUnmarshalablePayload(t *testing.T) {
	h := NewHub()

	// A payload json.Marshal rejects is logged and dropped, not fatal.
	h.BroadcastEvent(context.Background(), EventCheckpointResolved, make(chan int))
}

func TestDropUnknownClient(t *testing.T) {
	h := NewHub()
	h.drop(42)

	if got := h.ConnectionCount(); got != 0 {
		t.Errorf("ConnectionCount = %d, want 0", got)
	}
}
