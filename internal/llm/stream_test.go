package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamOrderPreserved(t *testing.T) {
	fragments := []string{"a", "b", "c", "d"}
	s := newStream(context.Background(), func(ctx context.Context, emit func(string) bool) {
		for _, f := range fragments {
			if !emit(f) {
				return
			}
		}
	})

	var got []string
	for {
		f, ok := s.Recv()
		if !ok {
			break
		}
		got = append(got, f)
	}
	assert.Equal(t, fragments, got)
}

func TestStreamCollect(t *testing.T) {
	s := newStream(context.Background(), func(ctx context.Context, emit func(string) bool) {
		emit("hello ")
		emit("world")
	})

	assert.Equal(t, "hello world", s.Collect())
}

func TestStreamCloseStopsProducer(t *testing.T) {
	stopped := make(chan struct{})
	s := newStream(context.Background(), func(ctx context.Context, emit func(string) bool) {
		defer close(stopped)
		for i := 0; ; i++ {
			if !emit("x") {
				return
			}
		}
	})

	f, ok := s.Recv()
	require.True(t, ok)
	require.Equal(t, "x", f)

	s.Close()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("producer did not stop after Close")
	}
}

func TestStreamEmptyProducer(t *testing.T) {
	s := newStream(context.Background(), func(ctx context.Context, emit func(string) bool) {})

	_, ok := s.Recv()
	assert.False(t, ok)
}
