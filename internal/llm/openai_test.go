package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIChat_NotConfigured(t *testing.T) {
	o := NewOpenAIChat(OpenAIChatConfig{})

	_, err := o.Generate(context.Background(), testPrompt())
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = o.GenerateStream(context.Background(), testPrompt())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestOpenAIChat_BuildRequest(t *testing.T) {
	o := NewOpenAIChat(OpenAIChatConfig{APIKey: "k", Model: "gpt-test", MaxTokens: 256})

	req := o.buildRequest(testPrompt())

	assert.Equal(t, "gpt-test", req.Model)
	assert.Equal(t, 256, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "RELEVANT TRANSCRIPT SECTIONS:")
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Equal(t, "When is the launch?", req.Messages[1].Content)
}

func TestOpenAIChat_Defaults(t *testing.T) {
	o := NewOpenAIChat(OpenAIChatConfig{APIKey: "k"})

	req := o.buildRequest(testPrompt())
	assert.Equal(t, defaultOpenAIChatModel, req.Model)
	assert.Equal(t, defaultMaxTokens, req.MaxTokens)
}
