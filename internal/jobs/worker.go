package jobs

import (
	"context"
	"log"
	"time"
)

// JobProcessor drains whatever work is pending. One call per poll tick.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker drives a JobProcessor on a fixed poll interval. A processing error
// is logged and the loop keeps polling.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

func NewWorker(processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start runs the poll loop until ctx is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("ingest worker: polling every %v", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("ingest worker: context cancelled, stopping")
			return
		case <-w.stopChan:
			log.Println("ingest worker: stop requested")
			return
		case <-ticker.C:
			if err := w.processor.ProcessJobs(ctx); err != nil {
				log.Printf("ingest worker: process jobs: %v", err)
			}
		}
	}
}

// Stop signals the loop and waits for the in-flight poll to finish.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Println("ingest worker: shutdown complete")
}
