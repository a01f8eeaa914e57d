package llm

import (
	"context"
	"log/slog"

	"github.com/jllopis/converge/pkg/resilience"
)

// RetryProvider retries failed calls to a live backend.
type RetryProvider struct {
	next   Provider
	config resilience.RetryConfig
	logger *slog.Logger
}

// NewRetryProvider wraps next with the given retry policy.
func NewRetryProvider(next Provider, config resilience.RetryConfig, logger *slog.Logger) *RetryProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryProvider{next: next, config: config, logger: logger}
}

// Chat implements Provider.
func (r *RetryProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	attempt := 0
	return resilience.Do(ctx, r.config, func(ctx context.Context) (*ChatResponse, error) {
		attempt++
		resp, err := r.next.Chat(ctx, req)
		if err != nil {
			r.logger.DebugContext(ctx, "llm call failed",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
		}
		return resp, err
	})
}
