package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeTransport     = "TRANSPORT_ERROR"
	ErrCodeExtraction    = "EXTRACTION_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrUnsupportedFileType = NewDomainError(ErrCodeValidation, "unsupported file type")
	ErrEmptyQuestion       = NewDomainError(ErrCodeValidation, "question cannot be empty")
	ErrInvalidSourceStatus = NewDomainError(ErrCodeValidation, "invalid source status transition")
)

// Not found errors
var (
	ErrSourceNotFound    = NewDomainError(ErrCodeNotFound, "source not found")
	ErrIngestJobNotFound = NewDomainError(ErrCodeNotFound, "ingest job not found")
)

// Configuration errors are raised before any network call is attempted and
// are never retried.
var (
	ErrProviderNotConfigured    = NewDomainError(ErrCodeConfiguration, "generation provider not configured")
	ErrEmbedderNotConfigured    = NewDomainError(ErrCodeConfiguration, "embedding provider not configured")
	ErrTranscriberNotConfigured = NewDomainError(ErrCodeConfiguration, "transcription service not configured")
	ErrPartitionerNotConfigured = NewDomainError(ErrCodeConfiguration, "document partitioner not configured")
	ErrStorageNotConfigured     = NewDomainError(ErrCodeConfiguration, "object storage not configured")
)

// Extraction errors mark a source failed with a message; they never reach a
// UI caller as anything more than the source's failed status.
var (
	ErrEmptySource         = NewDomainError(ErrCodeExtraction, "source has no readable text")
	ErrNoReadableBlocks    = NewDomainError(ErrCodeExtraction, "no readable content extracted from document")
	ErrTranscriptionFailed = NewDomainError(ErrCodeExtraction, "transcription did not complete")
	ErrAudioURLMissing     = NewDomainError(ErrCodeExtraction, "audio requires a reachable storage URL for transcription")
)
