package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/arbiterhq/arbiter/internal/domain/decision"
)

// Event type constants for WebSocket messages.
const (
	EventCheckpointCreated   = "checkpoint.created"
	EventCheckpointResolved  = "checkpoint.resolved"
	EventCheckpointCancelled = "checkpoint.cancelled"
)

// CheckpointCreatedEvent is broadcast when a decision enters the waiting
// set. It carries the full checkpoint so operator UIs can render the
// options and recommendation without a follow-up fetch.
type CheckpointCreatedEvent struct {
	Checkpoint decision.Checkpoint `json:"checkpoint"`
}

// CheckpointCompletedEvent is broadcast when a checkpoint is resolved or
// cancelled.
type CheckpointCompletedEvent struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Status   string `json:"status"`
	ChosenID string `json:"chosen_id"`
	Accepted bool   `json:"accepted"`
	ConvID   string `json:"conv_id,omitempty"`
}

// BroadcastEvent marshals a typed event and broadcasts it to all clients.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
