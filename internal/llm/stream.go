package llm

import (
	"context"
	"strings"
)

// streamBuffer bounds the fragment hand-off queue. A full buffer blocks the
// producer rather than dropping fragments.
const streamBuffer = 32

// Stream delivers generated text fragments in upstream order. It is finite
// and not restartable: once Recv reports done, the answer is complete.
type Stream struct {
	ch     chan string
	cancel context.CancelFunc
}

// produceFunc feeds fragments through emit. emit returns false when the
// consumer has gone away, at which point the producer should stop.
type produceFunc func(ctx context.Context, emit func(string) bool)

// NewStream starts produce on its own goroutine and returns the consumer
// handle. The channel is closed when produce returns.
func NewStream(ctx context.Context, produce func(ctx context.Context, emit func(string) bool)) *Stream {
	return newStream(ctx, produce)
}

func newStream(ctx context.Context, produce produceFunc) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		ch:     make(chan string, streamBuffer),
		cancel: cancel,
	}

	go func() {
		defer close(s.ch)
		produce(ctx, func(fragment string) bool {
			select {
			case s.ch <- fragment:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()

	return s
}

// Recv returns the next fragment. ok is false after the final fragment has
// been delivered.
func (s *Stream) Recv() (fragment string, ok bool) {
	fragment, ok = <-s.ch
	return
}

// Close abandons the stream. The producer observes the cancellation on its
// next emit and stops.
func (s *Stream) Close() {
	s.cancel()
	for range s.ch {
	}
}

// Collect drains the stream and returns the concatenated answer.
func (s *Stream) Collect() string {
	var b strings.Builder
	for {
		fragment, ok := s.Recv()
		if !ok {
			return b.String()
		}
		b.WriteString(fragment)
	}
}
