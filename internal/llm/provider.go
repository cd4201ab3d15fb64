// Package llm adapts interchangeable generation backends behind one
// synchronous and one streaming contract. All providers consume the same
// assembled prompt and share the streaming sentinel policy: transport
// failures mid-stream surface as a final user-visible fragment instead of an
// error, while synchronous calls return the error.
package llm

import (
	"context"
	"errors"
	"net"

	"github.com/quorumhq/quorum/internal/domain"
	"github.com/quorumhq/quorum/internal/prompt"
)

const (
	// TimeoutSentinel is appended to a stream when the upstream read times out.
	TimeoutSentinel = "\n[Model timed out. Try again.]"
	// ErrorSentinel is appended to a stream on any other transport failure.
	ErrorSentinel = "\n[Model error. Please try again.]"
)

// ErrNotConfigured is returned before any network call when a provider is
// missing its credentials.
var ErrNotConfigured = domain.ErrProviderNotConfigured

// Provider generates answers from an assembled prompt.
type Provider interface {
	Name() string
	Generate(ctx context.Context, p *prompt.Prompt) (string, error)
	GenerateStream(ctx context.Context, p *prompt.Prompt) (*Stream, error)
}

// isTimeout reports whether err is a deadline or network timeout, which
// selects the timeout sentinel over the generic one.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sentinelFor(err error) string {
	if isTimeout(err) {
		return TimeoutSentinel
	}
	return ErrorSentinel
}
