package vecindex

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbedder) Dimensions() int {
	return m.Called().Int(0)
}

func TestSearchDegradesWhenEmbedFails(t *testing.T) {
	embedder := new(MockEmbedder)
	embedder.On("Embed", mock.Anything, "what happened?").
		Return(nil, errors.New("upstream down"))

	gw := NewGateway(nil, embedder)
	results := gw.Search(context.Background(), "what happened?", nil, 5)

	assert.NotNil(t, results)
	assert.Empty(t, results)
	embedder.AssertExpectations(t)
}

func TestUpsertChunksEmptyIsNoOp(t *testing.T) {
	gw := NewGateway(nil, new(MockEmbedder))

	err := gw.UpsertChunks(context.Background(), "meeting-1", nil, nil)

	assert.NoError(t, err)
}
