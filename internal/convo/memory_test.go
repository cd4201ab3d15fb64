package convo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quorumhq/quorum/internal/domain"
)

type MockTurnStore struct {
	mock.Mock
}

func (m *MockTurnStore) Create(ctx context.Context, t *domain.ConversationTurn) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockTurnStore) GetRecent(ctx context.Context, meetingID, userID string, limit int) ([]*domain.ConversationTurn, error) {
	args := m.Called(ctx, meetingID, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ConversationTurn), args.Error(1)
}

func (m *MockTurnStore) GetRecentForUser(ctx context.Context, userID string, limit int) ([]*domain.ConversationTurn, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ConversationTurn), args.Error(1)
}

func TestMemory_GetContext_PairsPerTurn(t *testing.T) {
	store := new(MockTurnStore)
	meetingID := "meeting-1"
	turns := []*domain.ConversationTurn{
		{ID: "t1", MeetingID: &meetingID, UserID: "u1", Question: "q1", Answer: "a1", CreatedAt: time.Now().Add(-time.Minute)},
		{ID: "t2", MeetingID: &meetingID, UserID: "u1", Question: "q2", Answer: "a2", CreatedAt: time.Now()},
	}
	store.On("GetRecent", mock.Anything, "meeting-1", "u1", DefaultTurnLimit).Return(turns, nil)

	memory := NewMemory(store)
	entries := memory.GetContext(context.Background(), &meetingID, "u1")

	require.Len(t, entries, 4)
	assert.Equal(t, Entry{Role: "user", Content: "q1"}, entries[0])
	assert.Equal(t, Entry{Role: "assistant", Content: "a1"}, entries[1])
	assert.Equal(t, Entry{Role: "user", Content: "q2"}, entries[2])
	assert.Equal(t, Entry{Role: "assistant", Content: "a2"}, entries[3])
	store.AssertExpectations(t)
}

func TestMemory_GetContext_GlobalScopeSpansMeetings(t *testing.T) {
	store := new(MockTurnStore)
	m1, m2 := "meeting-1", "meeting-2"
	turns := []*domain.ConversationTurn{
		{ID: "t1", MeetingID: &m1, UserID: "u1", Question: "q1", Answer: "a1", CreatedAt: time.Now().Add(-time.Minute)},
		{ID: "t2", MeetingID: &m2, UserID: "u1", Question: "q2", Answer: "a2", CreatedAt: time.Now()},
	}
	store.On("GetRecentForUser", mock.Anything, "u1", DefaultTurnLimit).Return(turns, nil)

	memory := NewMemory(store)
	entries := memory.GetContext(context.Background(), nil, "u1")

	require.Len(t, entries, 4)
	assert.Equal(t, Entry{Role: "user", Content: "q1"}, entries[0])
	assert.Equal(t, Entry{Role: "assistant", Content: "a2"}, entries[3])
	store.AssertNotCalled(t, "GetRecent")
	store.AssertExpectations(t)
}

func TestMemory_GetContext_DegradesOnStoreError(t *testing.T) {
	store := new(MockTurnStore)
	meetingID := "meeting-1"
	store.On("GetRecent", mock.Anything, "meeting-1", "u1", DefaultTurnLimit).
		Return(nil, errors.New("connection refused"))

	memory := NewMemory(store)
	entries := memory.GetContext(context.Background(), &meetingID, "u1")

	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestMemory_SaveTurn_PersistsMeetingScoped(t *testing.T) {
	store := new(MockTurnStore)
	meetingID := "meeting-1"
	store.On("Create", mock.Anything, mock.MatchedBy(func(turn *domain.ConversationTurn) bool {
		return turn.MeetingID != nil && *turn.MeetingID == "meeting-1" &&
			turn.UserID == "u1" && turn.Question == "q" && turn.Answer == "a" && turn.ID != ""
	})).Return(nil)

	memory := NewMemory(store)
	memory.SaveTurn(context.Background(), &meetingID, "u1", "q", "a", []int{1})

	store.AssertExpectations(t)
}

func TestMemory_SaveTurn_SkipsGlobalScope(t *testing.T) {
	store := new(MockTurnStore)

	memory := NewMemory(store)
	memory.SaveTurn(context.Background(), nil, "u1", "q", "a", nil)

	store.AssertNotCalled(t, "Create")
}

func TestMemory_SaveTurn_SwallowsStoreError(t *testing.T) {
	store := new(MockTurnStore)
	meetingID := "meeting-1"
	store.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	memory := NewMemory(store)
	// Must not panic or propagate.
	memory.SaveTurn(context.Background(), &meetingID, "u1", "q", "a", nil)

	store.AssertExpectations(t)
}

func TestNewMemoryWithLimit(t *testing.T) {
	store := new(MockTurnStore)
	meetingID := "meeting-1"
	store.On("GetRecent", mock.Anything, "meeting-1", "u1", 3).Return([]*domain.ConversationTurn{}, nil)

	memory := NewMemoryWithLimit(store, 3)
	memory.GetContext(context.Background(), &meetingID, "u1")

	store.AssertExpectations(t)
}
