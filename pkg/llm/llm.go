package llm

import (
	"context"
	"errors"

	"github.com/graphweave/graphweave/pkg/types"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o-mini"

	// MaxRetries bounds retry attempts for transient provider failures.
	MaxRetries = 2
)

var (
	// ErrNoMessages is returned when Chat is called with an empty prompt.
	ErrNoMessages = errors.New("no messages provided")

	// ErrEmptyResponse is returned when the provider returns no content.
	ErrEmptyResponse = errors.New("empty response from provider")

	// ErrRateLimited is returned when the provider rejects for rate limiting
	// after retries are exhausted.
	ErrRateLimited = errors.New("provider rate limit exceeded")
)

// Client is a chat completion provider.
type Client interface {
	// Chat sends the messages and returns the completion.
	Chat(ctx context.Context, messages []types.Message) (*types.Response, error)

	// Close releases client resources.
	Close() error
}

// Config holds provider settings shared by all client implementations.
type Config struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// NewConfig returns a Config with the default model.
func NewConfig() *Config {
	return &Config{
		Model: DefaultModel,
	}
}
