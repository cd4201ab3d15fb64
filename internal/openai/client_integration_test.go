//go:build integration

package openai

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_EmbedBatch_RealAPI(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	client := NewClient(apiKey)
	ctx := context.Background()
	texts := []string{
		"This is a test document for generating embeddings.",
		"A second passage to exercise the batch path.",
	}

	vectors, err := client.EmbedBatch(ctx, texts)

	require.NoError(t, err)
	require.Len(t, vectors, 2)
	for _, vec := range vectors {
		assert.Len(t, vec, DefaultEmbeddingDimensions)
	}
}
