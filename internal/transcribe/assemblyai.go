// Package transcribe turns remotely-hosted audio into text through the
// AssemblyAI transcription API: submit a job, then poll it to a terminal
// state within a fixed time budget.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/quorumhq/quorum/internal/domain"
)

const (
	defaultBaseURL      = "https://api.assemblyai.com/v2"
	defaultPollInterval = 4 * time.Second
	defaultWaitBudget   = 120 * time.Second
)

// Transcript is the provider's view of one transcription job.
type Transcript struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Config configures the transcription client.
type Config struct {
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
	WaitBudget   time.Duration
}

// Client submits and polls transcription jobs.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.WaitBudget <= 0 {
		cfg.WaitBudget = defaultWaitBudget
	}
	return &Client{cfg: cfg, httpClient: &http.Client{}}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (*Transcript, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("authorization", c.cfg.APIKey)
	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1000))
		return nil, fmt.Errorf("transcription request failed (status=%d): %s", resp.StatusCode, snippet)
	}

	var t Transcript
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode transcription response: %w", err)
	}
	return &t, nil
}

// Start submits audioURL for transcription and returns the created job.
func (c *Client) Start(ctx context.Context, audioURL string) (*Transcript, error) {
	return c.do(ctx, http.MethodPost, "/transcript", map[string]any{
		"audio_url":          audioURL,
		"language_detection": true,
	})
}

// Get fetches the current state of a transcription job.
func (c *Client) Get(ctx context.Context, transcriptID string) (*Transcript, error) {
	return c.do(ctx, http.MethodGet, "/transcript/"+transcriptID, nil)
}

// WaitForCompletion polls the job until it reaches a terminal state or the
// wait budget elapses. A budget overrun returns the last observed state, so
// callers see a non-terminal status rather than an error.
func (c *Client) WaitForCompletion(ctx context.Context, transcriptID string) (*Transcript, error) {
	deadline := time.Now().Add(c.cfg.WaitBudget)
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	last := &Transcript{ID: transcriptID, Status: "processing"}
	for time.Now().Before(deadline) {
		t, err := c.Get(ctx, transcriptID)
		if err != nil {
			return nil, err
		}
		last = t
		if t.Status == "completed" || t.Status == "error" || t.Status == "failed" {
			return t, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
	return last, nil
}

// Transcribe runs the whole submit-and-wait flow and returns the transcript
// text. Anything other than a completed job with non-empty text is an error.
func (c *Client) Transcribe(ctx context.Context, audioURL string) (string, error) {
	if !c.Configured() {
		return "", domain.ErrTranscriberNotConfigured
	}

	started, err := c.Start(ctx, audioURL)
	if err != nil {
		return "", err
	}
	if started.ID == "" {
		return "", domain.ErrTranscriptionFailed
	}

	result, err := c.WaitForCompletion(ctx, started.ID)
	if err != nil {
		return "", err
	}
	if result.Status != "completed" || result.Text == "" {
		if result.Error != "" {
			return "", domain.NewDomainError(domain.ErrCodeTransport, result.Error)
		}
		return "", domain.ErrTranscriptionFailed
	}
	return result.Text, nil
}
