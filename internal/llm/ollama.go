package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/quorumhq/quorum/internal/prompt"
)

const defaultOllamaModel = "llama3"

// OllamaConfig configures the self-hosted Ollama provider. BaseURL is the
// credential here: an empty value means the provider is not configured.
type OllamaConfig struct {
	BaseURL        string
	Model          string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

func (c *OllamaConfig) applyDefaults() {
	if c.Model == "" {
		c.Model = defaultOllamaModel
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaultReadTimeout
	}
}

// Ollama talks to a local Ollama server over its /api/generate endpoint,
// which streams line-delimited JSON objects ending with a done marker.
type Ollama struct {
	cfg    OllamaConfig
	client *http.Client
}

func NewOllama(cfg OllamaConfig) *Ollama {
	cfg.applyDefaults()
	return &Ollama{
		cfg: cfg,
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
			},
		},
	}
}

func (o *Ollama) Name() string { return "ollama" }

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func (o *Ollama) post(ctx context.Context, p *prompt.Prompt, stream bool) (*http.Response, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:  o.cfg.Model,
		Prompt: p.Flatten(),
		Stream: stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	url := strings.TrimRight(o.cfg.BaseURL, "/") + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1000))
		resp.Body.Close()
		return nil, fmt.Errorf("ollama generate failed (status=%d): %s", resp.StatusCode, snippet)
	}
	return resp, nil
}

func (o *Ollama) Generate(ctx context.Context, p *prompt.Prompt) (string, error) {
	if o.cfg.BaseURL == "" {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.ReadTimeout)
	defer cancel()

	resp, err := o.post(ctx, p, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var chunk ollamaChunk
	if err := json.NewDecoder(resp.Body).Decode(&chunk); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	if chunk.Error != "" {
		return "", fmt.Errorf("ollama generate: %s", chunk.Error)
	}
	return strings.TrimSpace(chunk.Response), nil
}

func (o *Ollama) GenerateStream(ctx context.Context, p *prompt.Prompt) (*Stream, error) {
	if o.cfg.BaseURL == "" {
		return nil, ErrNotConfigured
	}

	return newStream(ctx, func(ctx context.Context, emit func(string) bool) {
		ctx, cancel := context.WithTimeout(ctx, o.cfg.ReadTimeout)
		defer cancel()

		resp, err := o.post(ctx, p, true)
		if err != nil {
			log.Printf("ollama stream request failed: %v", err)
			emit(sentinelFor(err))
			return
		}
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var chunk ollamaChunk
			if err := json.Unmarshal([]byte(line), &chunk); err != nil {
				log.Printf("ollama stream skipped malformed line: %v", err)
				continue
			}
			if chunk.Error != "" {
				log.Printf("ollama stream error: %s", chunk.Error)
				emit(ErrorSentinel)
				return
			}
			if chunk.Response != "" {
				if !emit(chunk.Response) {
					return
				}
			}
			if chunk.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Printf("ollama stream read failed: %v", err)
			emit(sentinelFor(err))
		}
	}), nil
}
