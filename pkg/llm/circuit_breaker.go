package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/openincentives/matchengine/pkg/types"
)

// BreakerConfig tunes the circuit breaker wrapped around a Client.
type BreakerConfig struct {
	// MaxRequests is the number of probe requests allowed while half-open.
	MaxRequests uint32 `json:"max_requests" mapstructure:"max_requests"`

	// Interval is the cyclic period, in seconds, over which failure
	// counts are accumulated while closed.
	Interval int `json:"interval" mapstructure:"interval"`

	// Timeout is how long, in seconds, the breaker stays open before
	// probing again.
	Timeout int `json:"timeout" mapstructure:"timeout"`

	// ReadyToTripRatio is the failure ratio at which the breaker opens.
	ReadyToTripRatio float64 `json:"ready_to_trip_ratio" mapstructure:"ready_to_trip_ratio"`
}

// DefaultBreakerConfig returns the breaker tuning used in production.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         60,
		Timeout:          30,
		ReadyToTripRatio: 0.6,
	}
}

// CircuitBreakerClient wraps a Client with circuit breaking logic so a
// misbehaving provider fails fast instead of stalling every match run.
type CircuitBreakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

// NewCircuitBreakerClient creates a breaker around client. A nil logger
// falls back to slog.Default.
func NewCircuitBreakerClient(client Client, cfg BreakerConfig, logger *slog.Logger, name string) *CircuitBreakerClient {
	if logger == nil {
		logger = slog.Default()
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
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
