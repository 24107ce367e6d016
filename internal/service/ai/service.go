package ai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"planora/internal/config"
	"planora/internal/models"
)

// Service wraps one configured chat model. The tool set varies per turn
// (it is bound to the caller's scope), so the react agent is assembled per
// call rather than once at startup.
type Service struct {
	chatModel model.ToolCallingChatModel
	provider  string
}

// NewService builds the chat model for the named provider using the
// server-side credentials from cfg.
func NewService(cfg *config.Config, provider string) (*Service, error) {
	provCfg, ok := cfg.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("provider %s not configured", provider)
	}
	if provCfg.APIKey == "" {
		return nil, fmt.Errorf("provider %s has no api key", provider)
	}

	var chatModel model.ToolCallingChatModel
	var err error
	switch provider {
	case "openai":
		chatModel, err = openai.NewChatModel(context.Background(), &openai.ChatModelConfig{
			BaseURL: provCfg.BaseURL,
			Model:   provCfg.Model,
			APIKey:  provCfg.APIKey,
		})
	case "gemini":
		var client *genai.Client
		client, err = genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey: provCfg.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("init gemini client: %w", err)
		}
		chatModel, err = gemini.NewChatModel(context.Background(), &gemini.Config{
			Client: client,
			Model:  provCfg.Model,
		})
	case "claude":
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		chatModel, err = claude.NewChatModel(context.Background(), &claude.Config{
			APIKey:    provCfg.APIKey,
			Model:     provCfg.Model,
			BaseURL:   baseURLPtr,
			MaxTokens: 3000,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", provider, err)
	}

	return &Service{chatModel: chatModel, provider: provider}, nil
}

// StreamChat invokes the model with the system prompt, the prior history
// and the new user message, forwarding each content delta to onChunk. When
// tools are supplied the turn runs through a react agent so the model can
// call them. Returns the full assistant text, including whatever partial
// output was produced before a mid-stream failure.
func (s *Service) StreamChat(ctx context.Context, systemPrompt string, history []*models.ChatMessage, userText string, tools []tool.BaseTool, onChunk func(string) error) (string, error) {
	if userText == "" {
		return "", errors.New("user message must not be empty")
	}
	messages := convertMessages(systemPrompt, history, userText)

	var (
		streamReader *schema.StreamReader[*schema.Message]
		err          error
	)
	if len(tools) > 0 {
		reactAgent, agentErr := react.NewAgent(ctx, &react.AgentConfig{
			ToolCallingModel: s.chatModel,
			ToolsConfig: compose.ToolsNodeConfig{
				Tools: tools,
			},
		})
		if agentErr != nil {
			return "", fmt.Errorf("init react agent: %w", agentErr)
		}
		streamReader, err = reactAgent.Stream(ctx, messages)
	} else {
		streamReader, err = s.chatModel.Stream(ctx, messages)
	}
	if err != nil {
		return "", fmt.Errorf("generate model stream: %w", err)
	}
	defer streamReader.Close()

	var fullContent string
	for {
		chunk, recvErr := streamReader.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			// broke mid-stream; partial output stands, the caller decides
			// how to signal the truncation
			return fullContent, fmt.Errorf("receive model stream: %w", recvErr)
		}
		content := chunk.Content
		if content == "" {
			continue
		}
		fullContent += content
		if onChunk != nil {
			if err := onChunk(content); err != nil {
				return fullContent, err
			}
		}
	}
	return fullContent, nil
}

func convertMessages(systemPrompt string, history []*models.ChatMessage, userText string) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history)+2)
	if systemPrompt != "" {
		messages = append(messages, &schema.Message{Role: schema.System, Content: systemPrompt})
	}
	for _, msg := range history {
		text := msg.Text()
		if text == "" {
			continue
		}
		var role schema.RoleType
		switch msg.Role {
		case models.RoleAssistant:
			role = schema.Assistant
		default:
			role = schema.User
		}
		messages = append(messages, &schema.Message{Role: role, Content: text})
	}
	messages = append(messages, &schema.Message{Role: schema.User, Content: userText})
	return messages
}
