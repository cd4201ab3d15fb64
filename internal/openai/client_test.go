package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockOpenAIAPI is a mock for the OpenAI API
type MockOpenAIAPI struct {
	mock.Mock
}

func (m *MockOpenAIAPI) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func makeVector(dims int) []float32 {
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = float32(i) * 0.001
	}
	return vec
}

func TestClient_EmbedBatch_Success(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, dimensions: 1536}

	ctx := context.Background()
	texts := []string{"First chunk of the transcript.", "Second chunk of the transcript."}
	expected := [][]float32{makeVector(1536), makeVector(1536)}

	mockAPI.On("CreateEmbeddings", ctx, texts).Return(expected, nil)

	vectors, err := client.EmbedBatch(ctx, texts)

	assert.NoError(t, err)
	assert.Len(t, vectors, 2)
	assert.Equal(t, expected, vectors)
	mockAPI.AssertExpectations(t)
}

func TestClient_EmbedBatch_EmptyBatch(t *testing.T) {
	client := NewClient("")

	ctx := context.Background()
	vectors, err := client.EmbedBatch(ctx, nil)

	assert.Error(t, err)
	assert.Nil(t, vectors)
	assert.Equal(t, ErrEmptyBatch, err)
}

func TestClient_EmbedBatch_EmptyText(t *testing.T) {
	client := NewClient("")

	ctx := context.Background()
	vectors, err := client.EmbedBatch(ctx, []string{"ok", ""})

	assert.Error(t, err)
	assert.Nil(t, vectors)
	assert.Equal(t, ErrEmptyText, err)
}

func TestClient_EmbedBatch_APIError(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, dimensions: 1536}

	ctx := context.Background()
	texts := []string{"Test text"}
	apiErr := errors.New("API rate limit exceeded")

	mockAPI.On("CreateEmbeddings", ctx, texts).Return(nil, apiErr)

	vectors, err := client.EmbedBatch(ctx, texts)

	assert.Error(t, err)
	assert.Nil(t, vectors)
	assert.Contains(t, err.Error(), "failed to create embeddings")
	mockAPI.AssertExpectations(t)
}

func TestClient_EmbedBatch_CountMismatch(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, dimensions: 1536}

	ctx := context.Background()
	texts := []string{"one", "two"}

	mockAPI.On("CreateEmbeddings", ctx, texts).Return([][]float32{makeVector(1536)}, nil)

	vectors, err := client.EmbedBatch(ctx, texts)

	assert.Error(t, err)
	assert.Nil(t, vectors)
	assert.Equal(t, ErrBatchMismatch, err)
	mockAPI.AssertExpectations(t)
}

func TestClient_EmbedBatch_WrongDimensions(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, dimensions: 1536}

	ctx := context.Background()
	texts := []string{"Test text"}

	mockAPI.On("CreateEmbeddings", ctx, texts).Return([][]float32{makeVector(512)}, nil)

	vectors, err := client.EmbedBatch(ctx, texts)

	assert.Error(t, err)
	assert.Nil(t, vectors)
	assert.ErrorIs(t, err, ErrWrongDimensions)
	mockAPI.AssertExpectations(t)
}

func TestClient_Embed_Single(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, dimensions: 8}

	ctx := context.Background()
	expected := makeVector(8)

	mockAPI.On("CreateEmbeddings", ctx, []string{"question"}).Return([][]float32{expected}, nil)

	vector, err := client.Embed(ctx, "question")

	assert.NoError(t, err)
	assert.Equal(t, expected, vector)
	mockAPI.AssertExpectations(t)
}

func TestNewClient(t *testing.T) {
	client := NewClient("test-api-key")

	assert.NotNil(t, client)
	assert.NotNil(t, client.api)
	assert.Equal(t, DefaultEmbeddingDimensions, client.Dimensions())
}

func TestNewClientWithConfig_CustomDimensions(t *testing.T) {
	client := NewClientWithConfig(Config{APIKey: "k", EmbeddingDimensions: 3072})

	assert.Equal(t, 3072, client.Dimensions())
}

func TestNewClientFromEnv_NoAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	client, err := NewClientFromEnv()

	assert.Nil(t, client)
	assert.Error(t, err)
	assert.Equal(t, ErrNoAPIKey, err)
}

func TestNewClientFromEnv_WithAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-api-key")

	client, err := NewClientFromEnv()

	assert.NotNil(t, client)
	assert.NoError(t, err)
}
