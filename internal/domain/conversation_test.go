package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTurn() *ConversationTurn {
	meetingID := "meeting-1"
	return &ConversationTurn{
		ID:            "turn-1",
		MeetingID:     &meetingID,
		UserID:        "user-1",
		Question:      "What was decided about the budget?",
		Answer:        "The budget was approved with a 10% increase.",
		CitedOrdinals: []int{0, 3},
		CreatedAt:     time.Now(),
	}
}

func TestValidateConversationTurn(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ConversationTurn)
		wantErr string
	}{
		{
			name:   "valid turn",
			mutate: func(*ConversationTurn) {},
		},
		{
			name:   "global turn without meeting",
			mutate: func(ct *ConversationTurn) { ct.MeetingID = nil },
		},
		{
			name:    "missing ID",
			mutate:  func(ct *ConversationTurn) { ct.ID = "" },
			wantErr: "ID is required",
		},
		{
			name:    "missing UserID",
			mutate:  func(ct *ConversationTurn) { ct.UserID = "" },
			wantErr: "UserID is required",
		},
		{
			name:    "missing Question",
			mutate:  func(ct *ConversationTurn) { ct.Question = "" },
			wantErr: "Question is required",
		},
		{
			name:    "missing Answer",
			mutate:  func(ct *ConversationTurn) { ct.Answer = "" },
			wantErr: "Answer is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turn := validTurn()
			tt.mutate(turn)

			err := ValidateConversationTurn(turn)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateConversationTurnNil(t *testing.T) {
	err := ValidateConversationTurn(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be nil")
}
