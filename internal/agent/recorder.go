package agent

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"planora/internal/models"
)

type turnRecorderContextKey struct{}

// TurnRecorder collects the tool calls made during one model turn so the
// assistant message can replay them as ordered parts. Tool bodies record
// into it through the request context; the model may run tools from
// multiple goroutines, so access is locked.
type TurnRecorder struct {
	mu    sync.Mutex
	parts []models.MessagePart
}

func NewTurnRecorder() *TurnRecorder {
	return &TurnRecorder{}
}

// Record appends a tool-call part and its matching tool-result part.
func (r *TurnRecorder) Record(toolName string, input, output json.RawMessage) {
	callID := uuid.NewString()
	r.mu.Lock()
	r.parts = append(r.parts,
		models.MessagePart{Type: models.PartToolCall, Tool: toolName, CallID: callID, Input: input},
		models.MessagePart{Type: models.PartToolResult, Tool: toolName, CallID: callID, Input: input, Output: output},
	)
	r.mu.Unlock()
}

// Parts returns the recorded parts in recording order.
func (r *TurnRecorder) Parts() []models.MessagePart {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.MessagePart, len(r.parts))
	copy(out, r.parts)
	return out
}

// WithTurnRecorder attaches a recorder to the context handed to the model.
func WithTurnRecorder(ctx context.Context, r *TurnRecorder) context.Context {
	if r == nil {
		return ctx
	}
	return context.WithValue(ctx, turnRecorderContextKey{}, r)
}

// TurnRecorderFromContext retrieves the recorder, if one is attached.
func TurnRecorderFromContext(ctx context.Context) (*TurnRecorder, bool) {
	r, ok := ctx.Value(turnRecorderContextKey{}).(*TurnRecorder)
	return r, ok && r != nil
}
