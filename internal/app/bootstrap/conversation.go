package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/urbanhaven-leadbot/internal/config"
	"github.com/wolfman30/urbanhaven-leadbot/internal/conversation"
	"github.com/wolfman30/urbanhaven-leadbot/internal/knowledge"
	"github.com/wolfman30/urbanhaven-leadbot/internal/observability/metrics"
	"github.com/wolfman30/urbanhaven-leadbot/pkg/logging"
)

// BuildLLMClient creates the generation client for LLM_PROVIDER. It returns
// a nil client, without error, when the provider has no credentials or model.
// When LLM_FALLBACK_PROVIDER names a second usable provider, failed calls are
// retried there. The close func releases the clients' connections.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (conversation.LLMClient, string, func() error, error) {
	noop := func() error { return nil }
	if cfg == nil {
		return nil, "", noop, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	primaryName := strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	primary, model, closePrimary, err := buildProviderClient(ctx, primaryName, cfg, awsCfg, logger)
	if err != nil || primary == nil {
		return nil, "", noop, err
	}

	fallbackName := strings.ToLower(strings.TrimSpace(cfg.LLMFallbackProvider))
	if fallbackName == "" || fallbackName == primaryName {
		return primary, model, closePrimary, nil
	}
	fallback, fallbackModel, closeFallback, err := buildProviderClient(ctx, fallbackName, cfg, awsCfg, logger)
	if err != nil {
		_ = closePrimary()
		return nil, "", noop, err
	}
	if fallback == nil {
		return primary, model, closePrimary, nil
	}

	logger.Info("LLM fallback enabled", "primary", primaryName, "fallback", fallbackName, "fallback_model", fallbackModel)
	closeBoth := func() error {
		return errors.Join(closePrimary(), closeFallback())
	}
	return conversation.NewFallbackLLMClient(primary, fallback, fallbackModel, logger), model, closeBoth, nil
}

func buildProviderClient(ctx context.Context, provider string, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (conversation.LLMClient, string, func() error, error) {
	noop := func() error { return nil }
	switch provider {
	case "", "bedrock":
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			logger.Warn("no Bedrock model configured")
			return nil, "", noop, nil
		}
		if awsCfg == nil {
			logger.Warn("bedrock selected but AWS is not configured")
			return nil, "", noop, nil
		}
		return conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(*awsCfg)), cfg.BedrockModelID, noop, nil
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			logger.Warn("gemini selected but GEMINI_API_KEY is empty")
			return nil, "", noop, nil
		}
		client, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, "", noop, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		return client, cfg.GeminiModelID, client.Close, nil
	default:
		return nil, "", noop, fmt.Errorf("bootstrap: unknown LLM provider %q", provider)
	}
}

// BuildResponder wires the reply composer for RESPONDER_MODE. Delegated mode
// without a usable LLM client degrades to templated replies.
func BuildResponder(ctx context.Context, cfg *appconfig.Config, kb *knowledge.Base, awsCfg *aws.Config, m *metrics.ConversationMetrics, logger *logging.Logger) (conversation.Responder, func() error, error) {
	noop := func() error { return nil }
	if cfg == nil {
		return nil, noop, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if kb == nil {
		kb = knowledge.Default()
	}
	templated := conversation.NewTemplateResponder(conversation.NewTemplates(kb), m)

	switch mode := strings.ToLower(strings.TrimSpace(cfg.ResponderMode)); mode {
	case "", conversation.ResponderModeTemplated:
		logger.Info("using templated responder")
		return templated, noop, nil
	case conversation.ResponderModeDelegated:
	default:
		return nil, noop, fmt.Errorf("bootstrap: unknown RESPONDER_MODE %q", cfg.ResponderMode)
	}

	client, model, closeFn, err := BuildLLMClient(ctx, cfg, awsCfg, logger)
	if err != nil {
		return nil, noop, err
	}
	if client == nil {
		logger.Warn("delegated responder has no LLM client; using templated responder")
		return templated, noop, nil
	}

	logger.Info("using LLM responder", "provider", cfg.LLMProvider, "model", model, "timeout", cfg.LLMTimeout)
	return conversation.NewLLMResponder(client, kb, conversation.LLMResponderConfig{
		Model:       model,
		MaxTokens:   int32(cfg.LLMMaxTokens),
		Temperature: float32(cfg.LLMTemperature),
		Timeout:     cfg.LLMTimeout,
	}, logger, m), closeFn, nil
}

// LoadKnowledge reads KNOWLEDGE_FILE, or returns the embedded default.
func LoadKnowledge(cfg *appconfig.Config, logger *logging.Logger) (*knowledge.Base, error) {
	if cfg == nil || strings.TrimSpace(cfg.KnowledgeFile) == "" {
		return knowledge.Default(), nil
	}
	kb, err := knowledge.Load(cfg.KnowledgeFile)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load knowledge: %w", err)
	}
	if logger != nil {
		logger.Info("knowledge base loaded", "path", cfg.KnowledgeFile)
	}
	return kb, nil
}
