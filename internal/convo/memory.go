// Package convo provides short-term conversation memory for grounded
// question answering.
package convo

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/quorumhq/quorum/internal/domain"
)

// DefaultTurnLimit caps how many past turns are replayed into a prompt.
const DefaultTurnLimit = 5

// TurnStore is the persistence surface the memory needs.
type TurnStore interface {
	Create(ctx context.Context, t *domain.ConversationTurn) error
	GetRecent(ctx context.Context, meetingID, userID string, limit int) ([]*domain.ConversationTurn, error)
	GetRecentForUser(ctx context.Context, userID string, limit int) ([]*domain.ConversationTurn, error)
}

// Entry is one prompt-ready history line.
type Entry struct {
	Role    string
	Content string
}

// Memory reads and appends conversation turns. Memory failures never fail a
// query: reads degrade to empty history and writes are logged and dropped.
type Memory struct {
	store     TurnStore
	turnLimit int
}

func NewMemory(store TurnStore) *Memory {
	return &Memory{store: store, turnLimit: DefaultTurnLimit}
}

func NewMemoryWithLimit(store TurnStore, turnLimit int) *Memory {
	if turnLimit <= 0 {
		turnLimit = DefaultTurnLimit
	}
	return &Memory{store: store, turnLimit: turnLimit}
}

// GetContext returns prior turns as chronological user/assistant entry
// pairs, two entries per turn. A nil meetingID reads the user's turns
// across every meeting.
func (m *Memory) GetContext(ctx context.Context, meetingID *string, userID string) []Entry {
	var turns []*domain.ConversationTurn
	var err error
	if meetingID == nil {
		turns, err = m.store.GetRecentForUser(ctx, userID, m.turnLimit)
	} else {
		turns, err = m.store.GetRecent(ctx, *meetingID, userID, m.turnLimit)
	}
	if err != nil {
		log.Printf("conversation memory degraded: read history: %v", err)
		return []Entry{}
	}

	entries := make([]Entry, 0, len(turns)*2)
	for _, t := range turns {
		entries = append(entries,
			Entry{Role: "user", Content: t.Question},
			Entry{Role: "assistant", Content: t.Answer},
		)
	}
	return entries
}

// SaveTurn appends one question/answer pair after the answer is complete.
// Cross-meeting turns are intentionally not recorded.
func (m *Memory) SaveTurn(ctx context.Context, meetingID *string, userID, question, answer string, citedOrdinals []int) {
	if meetingID == nil {
		return
	}

	turn := &domain.ConversationTurn{
		ID:            uuid.NewString(),
		MeetingID:     meetingID,
		UserID:        userID,
		Question:      question,
		Answer:        answer,
		CitedOrdinals: citedOrdinals,
		CreatedAt:     time.Now().UTC(),
	}
	if err := m.store.Create(ctx, turn); err != nil {
		log.Printf("conversation memory degraded: save turn: %v", err)
	}
}
