package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quorumhq/quorum/internal/domain"
)

// ConversationRepository handles the append-only conversation turn log.
type ConversationRepository struct {
	db dbtx
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: pool}
}

func NewConversationRepositoryWithTx(tx dbtx) *ConversationRepository {
	return &ConversationRepository{db: tx}
}

func (r *ConversationRepository) Create(ctx context.Context, t *domain.ConversationTurn) error {
	if err := domain.ValidateConversationTurn(t); err != nil {
		return err
	}
	if t.MeetingID == nil {
		// Cross-meeting turns are never persisted.
		return nil
	}

	cited := t.CitedOrdinals
	if cited == nil {
		cited = []int{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO conversation_turns (id, meeting_id, user_id, question, answer, cited_ordinals, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, *t.MeetingID, t.UserID, t.Question, t.Answer, cited, t.CreatedAt,
	)
	return err
}

// GetRecent returns the newest turns for a (meeting, user) pair in
// chronological order, at most limit of them.
func (r *ConversationRepository) GetRecent(ctx context.Context, meetingID, userID string, limit int) ([]*domain.ConversationTurn, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, meeting_id, user_id, question, answer, cited_ordinals, created_at
		 FROM (
			 SELECT id, meeting_id, user_id, question, answer, cited_ordinals, created_at
			 FROM conversation_turns
			 WHERE meeting_id = $1 AND user_id = $2
			 ORDER BY created_at DESC
			 LIMIT $3
		 ) recent
		 ORDER BY created_at ASC`,
		meetingID, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []*domain.ConversationTurn
	for rows.Next() {
		var t domain.ConversationTurn
		var mID string
		if err := rows.Scan(&t.ID, &mID, &t.UserID, &t.Question, &t.Answer, &t.CitedOrdinals, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.MeetingID = &mID
		turns = append(turns, &t)
	}
	return turns, rows.Err()
}

// GetRecentForUser returns the newest turns for a user across every
// meeting in chronological order, at most limit of them.
func (r *ConversationRepository) GetRecentForUser(ctx context.Context, userID string, limit int) ([]*domain.ConversationTurn, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, meeting_id, user_id, question, answer, cited_ordinals, created_at
		 FROM (
			 SELECT id, meeting_id, user_id, question, answer, cited_ordinals, created_at
			 FROM conversation_turns
			 WHERE user_id = $1
			 ORDER BY created_at DESC
			 LIMIT $2
		 ) recent
		 ORDER BY created_at ASC`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []*domain.ConversationTurn
	for rows.Next() {
		var t domain.ConversationTurn
		var mID string
		if err := rows.Scan(&t.ID, &mID, &t.UserID, &t.Question, &t.Answer, &t.CitedOrdinals, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.MeetingID = &mID
		turns = append(turns, &t)
	}
	return turns, rows.Err()
}

func (r *ConversationRepository) DeleteByMeeting(ctx context.Context, meetingID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM conversation_turns WHERE meeting_id = $1`, meetingID)
	return err
}
