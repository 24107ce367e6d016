package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"planora/internal/models"
)

var errStreamBroken = errors.New("connection reset")

// stubChatModel replays canned chunks and can break the stream after them.
type stubChatModel struct {
	chunks   []string
	finalErr error
}

func (m *stubChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return nil, errors.New("not implemented")
}

func (m *stubChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	sr, sw := schema.Pipe[*schema.Message](len(m.chunks) + 1)
	go func() {
		defer sw.Close()
		for _, chunk := range m.chunks {
			sw.Send(&schema.Message{Role: schema.Assistant, Content: chunk}, nil)
		}
		if m.finalErr != nil {
			sw.Send(nil, m.finalErr)
		}
	}()
	return sr, nil
}

func (m *stubChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func TestStreamChatForwardsChunks(t *testing.T) {
	svc := &Service{chatModel: &stubChatModel{chunks: []string{"Hello ", "there."}}, provider: "openai"}

	var seen []string
	full, err := svc.StreamChat(context.Background(), "system", nil, "hi", nil, func(chunk string) error {
		seen = append(seen, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamChat error: %v", err)
	}
	if full != "Hello there." {
		t.Fatalf("unexpected full content %q", full)
	}
	if len(seen) != 2 || seen[0] != "Hello " || seen[1] != "there." {
		t.Fatalf("unexpected chunk sequence %#v", seen)
	}
}

func TestStreamChatSurfacesMidStreamError(t *testing.T) {
	svc := &Service{chatModel: &stubChatModel{chunks: []string{"partial "}, finalErr: errStreamBroken}, provider: "openai"}

	full, err := svc.StreamChat(context.Background(), "system", nil, "hi", nil, nil)
	if !errors.Is(err, errStreamBroken) {
		t.Fatalf("expected the stream break to surface, got %v", err)
	}
	if full != "partial " {
		t.Fatalf("partial output should be returned alongside the error, got %q", full)
	}
}

func TestStreamChatIncludesHistory(t *testing.T) {
	history := []*models.ChatMessage{
		{Role: models.RoleUser, Parts: []models.MessagePart{{Type: models.PartText, Text: "earlier question"}}},
		{Role: models.RoleAssistant, Parts: []models.MessagePart{{Type: models.PartText, Text: "earlier answer"}}},
	}
	messages := convertMessages("you are a planner", history, "new question")
	if len(messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(messages))
	}
	if messages[0].Role != schema.System || messages[1].Role != schema.User ||
		messages[2].Role != schema.Assistant || messages[3].Role != schema.User {
		t.Fatalf("unexpected role order: %#v", messages)
	}
	if messages[3].Content != "new question" {
		t.Fatalf("new user text must come last, got %q", messages[3].Content)
	}
}
