package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/graphweave/graphweave/pkg/types"
)

// AnthropicClient implements Client for the Anthropic Messages API.
type AnthropicClient struct {
	config     *Config
	httpClient *http.Client
}

// NewAnthropicClient creates a client for the Anthropic API.
func NewAnthropicClient(config *Config) *AnthropicClient {
	if config == nil {
		config = NewConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.anthropic.com"
	}

	return &AnthropicClient{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

var _ Client = (*AnthropicClient)(nil)

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature,omitempty"`
	System      string             `json:"system,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Model      string             `json:"model"`
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      anthropicUsage     `json:"usage"`
	Error      *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Chat sends the messages to the Messages API. System messages are carried
// in the request's top-level system field rather than the message list.
func (a *AnthropicClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}

	converted := make([]anthropicMessage, 0, len(messages))
	var system string
	for _, msg := range messages {
		if msg.Role == types.RoleSystem {
			system = msg.Content
			continue
		}
		converted = append(converted, anthropicMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	maxTokens := a.config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}

	req := anthropicRequest{
		Model:       a.config.Model,
		MaxTokens:   maxTokens,
		Messages:    converted,
		Temperature: float64(a.config.Temperature),
		System:      system,
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/v1/messages", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.config.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("API error: %s", parsed.Error.Message)
	}
	if len(parsed.Content) == 0 {
		return nil, ErrEmptyResponse
	}

	response := &types.Response{
		Content:      parsed.Content[0].Text,
		Model:        parsed.Model,
		FinishReason: parsed.StopReason,
	}
	if parsed.Usage.InputTokens > 0 || parsed.Usage.OutputTokens > 0 {
		response.TokensUsed = &types.TokenUsage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		}
	}
	return response, nil
}

// Close implements Client.
func (a *AnthropicClient) Close() error {
	return nil
}
