package conversation

import (
	"context"

	"github.com/wolfman30/urbanhaven-leadbot/pkg/logging"
)

// FallbackLLMClient retries a failed completion on a second provider.
// Providers name their models differently, so the fallback request carries
// fallbackModel instead of the caller's model.
type FallbackLLMClient struct {
	primary       LLMClient
	fallback      LLMClient
	fallbackModel string
	logger        *logging.Logger
}

// NewFallbackLLMClient wraps primary. A nil fallback makes the client a
// pass-through.
func NewFallbackLLMClient(primary, fallback LLMClient, fallbackModel string, logger *logging.Logger) *FallbackLLMClient {
	if primary == nil {
		panic("conversation: primary llm client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackLLMClient{
		primary:       primary,
		fallback:      fallback,
		fallbackModel: fallbackModel,
		logger:        logger,
	}
}

func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}
	if c.fallback == nil {
		return LLMResponse{}, err
	}
	// the caller's deadline already expired; a second call would fail the same way
	if ctx.Err() != nil {
		return LLMResponse{}, err
	}

	c.logger.Warn("primary LLM failed, attempting fallback", "error", err)

	fallbackReq := req
	if c.fallbackModel != "" {
		fallbackReq.Model = c.fallbackModel
	}
	fallbackResp, fallbackErr := c.fallback.Complete(ctx, fallbackReq)
	if fallbackErr != nil {
		c.logger.Error("fallback LLM also failed",
			"primary_error", err,
			"fallback_error", fallbackErr,
		)
		return LLMResponse{}, fallbackErr
	}
	return fallbackResp, nil
}
