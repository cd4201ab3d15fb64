package domain

import (
	"fmt"
	"time"
)

// ConversationTurn is one user question and the assistant answer it
// produced, scoped to a (meeting, user) pair. A nil MeetingID marks a
// cross-meeting (global) turn. Turns are written once and never mutated.
type ConversationTurn struct {
	ID            string
	MeetingID     *string
	UserID        string
	Question      string
	Answer        string
	CitedOrdinals []int
	CreatedAt     time.Time
}

// ValidateConversationTurn validates a ConversationTurn instance.
func ValidateConversationTurn(t *ConversationTurn) error {
	if t == nil {
		return fmt.Errorf("conversation turn cannot be nil")
	}
	if t.ID == "" {
		return fmt.Errorf("conversation turn ID is required")
	}
	if t.UserID == "" {
		return fmt.Errorf("conversation turn UserID is required")
	}
	if t.Question == "" {
		return fmt.Errorf("conversation turn Question is required")
	}
	if t.Answer == "" {
		return fmt.Errorf("conversation turn Answer is required")
	}
	return nil
}
