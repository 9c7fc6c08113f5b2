package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/graphweave/graphweave/pkg/types"
)

// BreakerConfig tunes the circuit breaker around a provider.
type BreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	IntervalSeconds  int     `mapstructure:"interval_seconds"`
	TimeoutSeconds   int     `mapstructure:"timeout_seconds"`
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// DefaultBreakerConfig returns conservative breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		IntervalSeconds:  60,
		TimeoutSeconds:   30,
		ReadyToTripRatio: 0.6,
	}
}

// CircuitBreakerClient wraps a Client so that a failing provider is given
// time to recover instead of being hammered. While the breaker is open,
// calls fail fast with gobreaker.ErrOpenState and the caller falls back to
// rule-based extraction.
type CircuitBreakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

// NewCircuitBreakerClient wraps client with the configured breaker.
func NewCircuitBreakerClient(client Client, cfg BreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	if logger == nil {
		logger = slog.Default()
	}

	st := gobreaker.Settings{
		Name:        "llm",
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &CircuitBreakerClient{
		client: client,
		cb:     gobreaker.NewCircuitBreaker(st),
		logger: logger,
	}
}

var _ Client = (*CircuitBreakerClient)(nil)

// Chat implements Client.
func (c *CircuitBreakerClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	resp, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.Chat(ctx, messages)
	})
	if err != nil {
		return nil, err
	}
	return resp.(*types.Response), nil
}

// Close implements Client.
func (c *CircuitBreakerClient) Close() error {
	return c.client.Close()
}
