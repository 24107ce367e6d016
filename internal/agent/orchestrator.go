package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/google/uuid"

	"planora/internal/models"
	"planora/internal/planner"
	"planora/internal/worker"
)

// Streamer is the model boundary: it takes the assembled prompt, history
// and tool set, forwards content deltas to onChunk, and returns the full
// assistant text (partial on a mid-stream failure).
type Streamer interface {
	StreamChat(ctx context.Context, systemPrompt string, history []*models.ChatMessage, userText string, tools []tool.BaseTool, onChunk func(string) error) (string, error)
}

// TurnRequest is one inbound chat turn before authorization.
type TurnRequest struct {
	UserID       int64
	AgentType    models.AgentType
	EventID      string
	VenueID      string
	ChatID       string
	MessageID    string
	UserText     string
	SystemPrompt string
}

// TurnResult reports what a finished turn produced and whether the record
// of it reached the store.
type TurnResult struct {
	Chat             *models.Chat
	UserMessage      *models.ChatMessage
	AssistantMessage *models.ChatMessage
	Persisted        bool
}

// Orchestrator drives a chat turn end to end: resolve the caller, assemble
// prompt and tools (cache or rebuild), attach to the chat, stream the model
// and persist the finished turn. Builder is a field so tests can substitute
// a counting or canned implementation.
type Orchestrator struct {
	Resolver *Resolver
	Builder  ContextBuilder
	Registry *Registry
	Cache    *PromptCache
	Store    *planner.Service
	Model    Streamer
	Pool     *worker.Pool
}

const chatTitleMaxLen = 60

// Turn is a prepared, authorized chat turn ready to stream.
type Turn struct {
	orch    *Orchestrator
	auth    AuthContext
	chat    *models.Chat
	prompt  string
	tools   []tool.BaseTool
	history []*models.ChatMessage
	userMsg models.ChatMessage
}

// Prepare runs every step that can fail fast: authentication, scope
// validation, prompt assembly, chat attach and history load. Nothing is
// streamed and no model call is made; errors here map cleanly to HTTP
// statuses before any output is committed.
func (o *Orchestrator) Prepare(ctx context.Context, req TurnRequest) (*Turn, error) {
	identity, err := o.Resolver.Resolve(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !req.AgentType.Known() {
		return nil, fmt.Errorf("%w: unknown agent type %q", ErrInvalidRequest, req.AgentType)
	}
	scope := Scope{EventID: req.EventID, VenueID: req.VenueID}
	if err := AllowsAgent(identity.Persona, req.AgentType, scope); err != nil {
		return nil, err
	}
	userText := strings.TrimSpace(req.UserText)
	if userText == "" {
		return nil, fmt.Errorf("%w: message text is required", ErrInvalidRequest)
	}
	auth := AuthContext{Identity: identity, Scope: scope}

	prompt := req.SystemPrompt
	if prompt == "" {
		key := CacheKey(req.AgentType, scope, identity.UserID)
		prompt, err = o.Cache.GetOrBuild(key, func() (string, error) {
			snap, buildErr := o.Builder.Build(ctx, auth, req.AgentType)
			if buildErr != nil {
				return "", buildErr
			}
			return Render(req.AgentType, snap), nil
		})
		if err != nil {
			return nil, err
		}
	}

	chatID := req.ChatID
	if chatID == "" {
		chatID = deriveChatID(req.AgentType, scope, identity.UserID)
	}
	chat, err := o.Store.GetOrCreateChat(ctx, models.Chat{
		ID:        chatID,
		UserID:    identity.UserID,
		Persona:   identity.Persona,
		AgentType: req.AgentType,
		EventID:   scope.EventID,
		VenueID:   scope.VenueID,
		Title:     chatTitle(userText),
	})
	if err != nil {
		return nil, fmt.Errorf("attach chat: %w", err)
	}
	if chat.UserID != identity.UserID {
		return nil, ErrForbidden
	}

	history, err := o.Store.LoadMessages(ctx, chat.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	messageID := req.MessageID
	if messageID == "" {
		messageID = uuid.NewString()
	}
	return &Turn{
		orch:    o,
		auth:    auth,
		chat:    chat,
		prompt:  prompt,
		tools:   o.Registry.ToolsFor(req.AgentType, auth),
		history: history,
		userMsg: models.ChatMessage{
			ID:        messageID,
			ChatID:    chat.ID,
			Role:      models.RoleUser,
			Parts:     []models.MessagePart{{Type: models.PartText, Text: userText}},
			CreatedAt: time.Now().UTC(),
		},
	}, nil
}

// Stream runs the prepared turn on the worker pool, forwarding deltas to
// onChunk. Fails fast with worker.ErrBusy when the pool's queue is full,
// before anything is emitted.
func (o *Orchestrator) Stream(ctx context.Context, t *Turn, onChunk func(string) error) (*TurnResult, error) {
	var (
		result    *TurnResult
		streamErr error
	)
	err := o.Pool.Do(ctx, func(jobCtx context.Context) {
		result, streamErr = t.run(jobCtx, onChunk)
	})
	if err != nil {
		return nil, err
	}
	return result, streamErr
}

// run invokes the model and persists the turn. A mid-stream failure still
// persists whatever partial output was generated, and is returned so the
// transport can signal truncation. Persistence failures after a delivered
// stream are logged and reported through Persisted, never as an error.
func (t *Turn) run(ctx context.Context, onChunk func(string) error) (*TurnResult, error) {
	recorder := NewTurnRecorder()
	modelCtx := WithTurnRecorder(ctx, recorder)

	text, streamErr := t.orch.Model.StreamChat(modelCtx, t.prompt, t.history, t.userMsg.Text(), t.tools, onChunk)

	parts := make([]models.MessagePart, 0, 1)
	if text != "" {
		parts = append(parts, models.MessagePart{Type: models.PartText, Text: text})
	}
	parts = append(parts, recorder.Parts()...)

	assistant := models.ChatMessage{
		ID:        t.userMsg.ID + "-reply",
		ChatID:    t.chat.ID,
		Role:      models.RoleAssistant,
		Parts:     parts,
		CreatedAt: time.Now().UTC(),
	}

	// the stream has already been delivered; persistence proceeds even if
	// the caller has gone away
	persistCtx := context.WithoutCancel(ctx)
	persisted := true
	if err := t.orch.Store.UpsertMessage(persistCtx, t.chat.ID, assistant); err != nil {
		persisted = false
		log.Printf("persist assistant message failed: chat=%s agent=%s err=%v", t.chat.ID, t.chat.AgentType, err)
	}
	if err := t.orch.Store.UpsertMessage(persistCtx, t.chat.ID, t.userMsg); err != nil {
		persisted = false
		log.Printf("persist user message failed: chat=%s agent=%s err=%v", t.chat.ID, t.chat.AgentType, err)
	}

	return &TurnResult{
		Chat:             t.chat,
		UserMessage:      &t.userMsg,
		AssistantMessage: &assistant,
		Persisted:        persisted,
	}, streamErr
}

// Chat exposes the attached chat record to the transport layer.
func (t *Turn) Chat() *models.Chat { return t.chat }

// UserMessageID exposes the id assigned to the triggering user message.
func (t *Turn) UserMessageID() string { return t.userMsg.ID }

// deriveChatID builds the stable chat id used when the caller supplies
// none: one chat per (agent type, scope, user).
func deriveChatID(agentType models.AgentType, scope Scope, userID int64) string {
	scopeID := scope.EventID
	if scopeID == "" {
		scopeID = scope.VenueID
	}
	return fmt.Sprintf("%s-%s-%d", agentType, scopeID, userID)
}

func chatTitle(userText string) string {
	title := strings.TrimSpace(userText)
	if runes := []rune(title); len(runes) > chatTitleMaxLen {
		title = strings.TrimSpace(string(runes[:chatTitleMaxLen]))
	}
	return title
}
