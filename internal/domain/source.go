package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// SourceKind distinguishes where a source's text came from.
type SourceKind string

const (
	SourceKindTranscript SourceKind = "transcript"
	SourceKindDocument   SourceKind = "document"
)

// SourceStatus represents the processing status of a source.
type SourceStatus string

const (
	SourceStatusNotStarted SourceStatus = "not_started"
	SourceStatusProcessing SourceStatus = "processing"
	SourceStatusCompleted  SourceStatus = "completed"
	SourceStatusFailed     SourceStatus = "failed"
)

// AllowedExtensions is the ingestion allow-list. Files outside this set are
// rejected before any processing begins.
var AllowedExtensions = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".doc":  true,
	".docx": true,
	".mp3":  true,
}

// Source is one ingestible unit of material: a meeting transcript or an
// uploaded document. Chunks are owned by their source and cascade on delete.
type Source struct {
	ID                  string
	MeetingID           string
	Kind                SourceKind
	FileName            string
	StorageKey          string
	StorageURL          string
	RawText             string
	Status              SourceStatus
	ErrorMessage        string
	ChunkCount          int
	EmbeddingsCreatedAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewTranscriptSource creates a transcript source for a meeting.
func NewTranscriptSource(id, meetingID string, createdAt time.Time) *Source {
	return &Source{
		ID:        id,
		MeetingID: meetingID,
		Kind:      SourceKindTranscript,
		FileName:  "transcript",
		Status:    SourceStatusNotStarted,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// NewDocumentSource creates a document source for an uploaded file.
func NewDocumentSource(id, meetingID, fileName string, createdAt time.Time) *Source {
	return &Source{
		ID:        id,
		MeetingID: meetingID,
		Kind:      SourceKindDocument,
		FileName:  fileName,
		Status:    SourceStatusNotStarted,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// Extension returns the lower-cased file extension of the source's file name.
func (s *Source) Extension() string {
	return strings.ToLower(filepath.Ext(s.FileName))
}

// IsTerminal reports whether the status stops automatic progression.
func (s SourceStatus) IsTerminal() bool {
	return s == SourceStatusCompleted || s == SourceStatusFailed
}

// CanTransitionTo enforces the monotonic forward status machine. A terminal
// state is only left when re-ingestion is explicitly forced, which resets
// the source to processing outside of this check.
func (s SourceStatus) CanTransitionTo(next SourceStatus) bool {
	switch s {
	case SourceStatusNotStarted:
		return next == SourceStatusProcessing || next == SourceStatusFailed
	case SourceStatusProcessing:
		return next == SourceStatusCompleted || next == SourceStatusFailed
	default:
		return false
	}
}

// ValidateSource validates a Source instance.
func ValidateSource(s *Source) error {
	if s == nil {
		return fmt.Errorf("source cannot be nil")
	}
	if s.ID == "" {
		return fmt.Errorf("source ID is required")
	}
	if s.MeetingID == "" {
		return fmt.Errorf("source MeetingID is required")
	}
	if !isValidSourceKind(s.Kind) {
		return fmt.Errorf("source Kind is invalid: %s", s.Kind)
	}
	if !isValidSourceStatus(s.Status) {
		return fmt.Errorf("source Status is invalid: %s", s.Status)
	}
	return nil
}

func isValidSourceKind(k SourceKind) bool {
	switch k {
	case SourceKindTranscript, SourceKindDocument:
		return true
	}
	return false
}

func isValidSourceStatus(s SourceStatus) bool {
	switch s {
	case SourceStatusNotStarted, SourceStatusProcessing,
		SourceStatusCompleted, SourceStatusFailed:
		return true
	}
	return false
}
