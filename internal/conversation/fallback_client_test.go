package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedLLM struct {
	resp  LLMResponse
	err   error
	calls []LLMRequest
}

func (s *scriptedLLM) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	s.calls = append(s.calls, req)
	return s.resp, s.err
}

func TestFallbackLLMClient_PrimarySucceeds(t *testing.T) {
	primary := &scriptedLLM{resp: LLMResponse{Text: "primary"}}
	fallback := &scriptedLLM{resp: LLMResponse{Text: "fallback"}}

	resp, err := NewFallbackLLMClient(primary, fallback, "gemini-2.5-flash", nil).
		Complete(context.Background(), LLMRequest{Model: "anthropic.claude"})

	require.NoError(t, err)
	assert.Equal(t, "primary", resp.Text)
	assert.Empty(t, fallback.calls)
}

func TestFallbackLLMClient_SwapsModelOnFallback(t *testing.T) {
	primary := &scriptedLLM{err: errors.New("throttled")}
	fallback := &scriptedLLM{resp: LLMResponse{Text: "fallback"}}

	resp, err := NewFallbackLLMClient(primary, fallback, "gemini-2.5-flash", nil).
		Complete(context.Background(), LLMRequest{Model: "anthropic.claude", MaxTokens: 100})

	require.NoError(t, err)
	assert.Equal(t, "fallback", resp.Text)
	require.Len(t, fallback.calls, 1)
	assert.Equal(t, "gemini-2.5-flash", fallback.calls[0].Model)
	assert.Equal(t, int32(100), fallback.calls[0].MaxTokens)
}

func TestFallbackLLMClient_ReturnsLastError(t *testing.T) {
	primaryErr := errors.New("throttled")
	fallbackErr := errors.New("quota")

	_, err := NewFallbackLLMClient(&scriptedLLM{err: primaryErr}, &scriptedLLM{err: fallbackErr}, "", nil).
		Complete(context.Background(), LLMRequest{})
	assert.ErrorIs(t, err, fallbackErr)

	_, err = NewFallbackLLMClient(&scriptedLLM{err: primaryErr}, nil, "", nil).
		Complete(context.Background(), LLMRequest{})
	assert.ErrorIs(t, err, primaryErr)
}

func TestFallbackLLMClient_SkipsFallbackAfterDeadline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fallback := &scriptedLLM{resp: LLMResponse{Text: "fallback"}}

	_, err := NewFallbackLLMClient(&scriptedLLM{err: context.Canceled}, fallback, "", nil).Complete(ctx, LLMRequest{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fallback.calls)
}
