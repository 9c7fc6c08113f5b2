package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/graphweave/graphweave/pkg/types"
)

// OpenAIClient implements Client for OpenAI and OpenAI-compatible endpoints.
type OpenAIClient struct {
	client *openai.Client
	config *Config
}

// NewOpenAIClient creates a client for the configured endpoint. An empty
// BaseURL targets the public OpenAI API.
func NewOpenAIClient(config *Config) *OpenAIClient {
	if config == nil {
		config = NewConfig()
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

var _ Client = (*OpenAIClient)(nil)

// Chat sends the messages, retrying transient provider failures with
// quadratic backoff.
func (c *OpenAIClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}

	req := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    convertMessages(messages),
		Temperature: c.config.Temperature,
	}
	if c.config.MaxTokens > 0 {
		req.MaxTokens = c.config.MaxTokens
	}

	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * time.Second
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				if attempt == MaxRetries {
					return nil, fmt.Errorf("%w: %s", ErrRateLimited, err.Error())
				}
				continue
			}
			if isRetriableError(err) && attempt < MaxRetries {
				continue
			}
			return nil, fmt.Errorf("openai completion failed: %w", err)
		}

		if len(resp.Choices) == 0 {
			return nil, ErrEmptyResponse
		}

		response := &types.Response{
			Content:      resp.Choices[0].Message.Content,
			Model:        resp.Model,
			FinishReason: string(resp.Choices[0].FinishReason),
		}
		if resp.Usage.TotalTokens > 0 {
			response.TokensUsed = &types.TokenUsage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			}
		}
		return response, nil
	}

	return nil, fmt.Errorf("all retries exhausted, last error: %w", lastErr)
}

// Close implements Client. The underlying client holds no resources.
func (c *OpenAIClient) Close() error {
	return nil
}

func convertMessages(messages []types.Message) []openai.ChatCompletionMessage {
	converted := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		var role string
		switch m.Role {
		case types.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case types.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		default:
			role = openai.ChatMessageRoleUser
		}
		converted = append(converted, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}
	return converted
}

func isRateLimitError(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "rate limit") || strings.Contains(s, "rate_limit")
}

func isRetriableError(err error) bool {
	s := strings.ToLower(err.Error())
	retriable := []string{
		"timeout",
		"connection",
		"internal server error",
		"service unavailable",
		"bad gateway",
		"gateway timeout",
	}
	for _, candidate := range retriable {
		if strings.Contains(s, candidate) {
			return true
		}
	}
	return false
}
