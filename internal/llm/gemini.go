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

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models/"
	defaultGeminiModel   = "gemini-2.5-flash-lite"

	defaultConnectTimeout = 10 * time.Second
	defaultReadTimeout    = 600 * time.Second
	defaultMaxTokens      = 1000
)

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	APIKey         string
	Model          string
	BaseURL        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	MaxTokens      int
}

func (c *GeminiConfig) applyDefaults() {
	if c.Model == "" {
		c.Model = defaultGeminiModel
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultGeminiBaseURL
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
}

// Gemini calls the generateContent and streamGenerateContent endpoints with
// the flattened prompt form. Streaming responses arrive as line-delimited
// JSON, with a whole-body JSON array fallback for servers that do not split
// items onto their own lines.
type Gemini struct {
	cfg    GeminiConfig
	client *http.Client
}

func NewGemini(cfg GeminiConfig) *Gemini {
	cfg.applyDefaults()
	return &Gemini{
		cfg: cfg,
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
			},
		},
	}
}

func (g *Gemini) Name() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		MaxOutputTokens int     `json:"maxOutputTokens"`
		Temperature     float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (r geminiResponse) text() string {
	var b strings.Builder
	for _, c := range r.Candidates {
		for _, p := range c.Content.Parts {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func (g *Gemini) buildRequest(p *prompt.Prompt) geminiRequest {
	req := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: p.Flatten()}}},
		},
	}
	req.GenerationConfig.MaxOutputTokens = g.cfg.MaxTokens
	req.GenerationConfig.Temperature = 0.7
	return req
}

func (g *Gemini) post(ctx context.Context, endpoint string, p *prompt.Prompt) (*http.Response, error) {
	body, err := json.Marshal(g.buildRequest(p))
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s%s:%s?key=%s", g.cfg.BaseURL, g.cfg.Model, endpoint, g.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1000))
		resp.Body.Close()
		return nil, fmt.Errorf("gemini %s failed (status=%d): %s", endpoint, resp.StatusCode, snippet)
	}
	return resp, nil
}

// Generate performs one synchronous generation call. Errors, including read
// timeouts, are returned to the caller.
func (g *Gemini) Generate(ctx context.Context, p *prompt.Prompt) (string, error) {
	if g.cfg.APIKey == "" {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.ReadTimeout)
	defer cancel()

	resp, err := g.post(ctx, "generateContent", p)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	return strings.TrimSpace(parsed.text()), nil
}

// GenerateStream starts a streaming generation call. Transport failures
// after the stream starts are converted into a trailing sentinel fragment.
func (g *Gemini) GenerateStream(ctx context.Context, p *prompt.Prompt) (*Stream, error) {
	if g.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	return newStream(ctx, func(ctx context.Context, emit func(string) bool) {
		ctx, cancel := context.WithTimeout(ctx, g.cfg.ReadTimeout)
		defer cancel()

		resp, err := g.post(ctx, "streamGenerateContent", p)
		if err != nil {
			log.Printf("gemini stream request failed: %v", err)
			emit(sentinelFor(err))
			return
		}
		defer resp.Body.Close()

		var buffered []string
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var item geminiResponse
			if err := json.Unmarshal([]byte(line), &item); err != nil {
				// Not a standalone item; part of a multi-line JSON array.
				buffered = append(buffered, line)
				continue
			}
			if text := item.text(); text != "" {
				if !emit(text) {
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			log.Printf("gemini stream read failed: %v", err)
			emit(sentinelFor(err))
			return
		}

		if len(buffered) > 0 {
			payload := strings.TrimSpace(strings.Join(buffered, "\n"))
			var items []geminiResponse
			if err := json.Unmarshal([]byte(payload), &items); err != nil {
				var single geminiResponse
				if err := json.Unmarshal([]byte(payload), &single); err != nil {
					log.Printf("gemini stream buffered payload was not JSON")
					return
				}
				items = []geminiResponse{single}
			}
			for _, item := range items {
				if text := item.text(); text != "" {
					if !emit(text) {
						return
					}
				}
			}
		}
	}), nil
}
