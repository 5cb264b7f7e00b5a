package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockConverse struct {
	response string
	err      error
	input    *bedrockruntime.ConverseInput
}

func (m *mockConverse) Converse(_ context.Context, in *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	m.input = in
	if m.err != nil {
		return nil, m.err
	}
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{
			Value: brtypes.Message{
				Role:    brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: m.response}},
			},
		},
		StopReason: brtypes.StopReasonEndTurn,
		Usage: &brtypes.TokenUsage{
			InputTokens:  aws.Int32(120),
			OutputTokens: aws.Int32(30),
			TotalTokens:  aws.Int32(150),
		},
	}, nil
}

func TestBedrockLLMClientComplete(t *testing.T) {
	api := &mockConverse{response: "  Hi! Houses start at $250,000.  "}
	client := NewBedrockLLMClient(api)

	resp, err := client.Complete(context.Background(), LLMRequest{
		Model:  "anthropic.claude-3-haiku",
		System: []string{"You are Emily.", " "},
		Messages: []ChatMessage{
			{Role: ChatRoleUser, Content: "hello"},
			{Role: ChatRoleUser, Content: "how much is a house?"},
			{Role: ChatRoleAssistant, Content: ""},
		},
		MaxTokens:   400,
		Temperature: 0.7,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi! Houses start at $250,000.", resp.Text)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, int32(150), resp.Usage.TotalTokens)

	require.NotNil(t, api.input)
	assert.Equal(t, "anthropic.claude-3-haiku", aws.ToString(api.input.ModelId))
	assert.Len(t, api.input.System, 1)
	// consecutive user turns are folded into one message
	require.Len(t, api.input.Messages, 1)
	assert.Len(t, api.input.Messages[0].Content, 2)
	require.NotNil(t, api.input.InferenceConfig)
	assert.Equal(t, int32(400), aws.ToInt32(api.input.InferenceConfig.MaxTokens))
	assert.InDelta(t, 0.7, aws.ToFloat32(api.input.InferenceConfig.Temperature), 1e-6)
}

func TestBedrockLLMClientErrors(t *testing.T) {
	client := NewBedrockLLMClient(&mockConverse{err: errors.New("throttled")})

	_, err := client.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}})
	require.Error(t, err, "model id is required")

	_, err = client.Complete(context.Background(), LLMRequest{Model: "m"})
	require.Error(t, err, "at least one message is required")

	_, err = client.Complete(context.Background(), LLMRequest{Model: "m", Messages: []ChatMessage{{Role: "tool", Content: "x"}}})
	require.Error(t, err)

	_, err = client.Complete(context.Background(), LLMRequest{Model: "m", Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")

	empty := NewBedrockLLMClient(&mockConverse{response: "   "})
	_, err = empty.Complete(context.Background(), LLMRequest{Model: "m", Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}})
	require.Error(t, err)
}

func TestBedrockInferenceOmittedWhenUnset(t *testing.T) {
	assert.Nil(t, bedrockInference(LLMRequest{Temperature: -1}))
}

func TestGeminiContents(t *testing.T) {
	history, last, system := geminiContents(LLMRequest{
		System: []string{"persona"},
		Messages: []ChatMessage{
			{Role: ChatRoleSystem, Content: "extra rules"},
			{Role: ChatRoleUser, Content: "hi"},
			{Role: ChatRoleAssistant, Content: "hello!"},
			{Role: ChatRoleUser, Content: "prices?"},
		},
	})
	assert.Equal(t, "persona\n\nextra rules", system)
	assert.Equal(t, "prices?", last)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "model", history[1].Role)
}

func TestNewGeminiLLMClientRequiresKey(t *testing.T) {
	_, err := NewGeminiLLMClient(context.Background(), " ", "")
	require.Error(t, err)
}
