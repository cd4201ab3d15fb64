package llm

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/quorumhq/quorum/internal/prompt"
)

const defaultOpenAIChatModel = openai.GPT4oMini

// OpenAIChatConfig configures the OpenAI chat-completion provider.
type OpenAIChatConfig struct {
	APIKey         string
	Model          string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	MaxTokens      int
}

func (c *OpenAIChatConfig) applyDefaults() {
	if c.Model == "" {
		c.Model = defaultOpenAIChatModel
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

// OpenAIChat drives chat-completion generation with the role-tagged prompt
// form, synchronously and via server-sent deltas.
type OpenAIChat struct {
	cfg    OpenAIChatConfig
	client *openai.Client
}

func NewOpenAIChat(cfg OpenAIChatConfig) *OpenAIChat {
	cfg.applyDefaults()

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.HTTPClient = &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
		},
	}
	return &OpenAIChat{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

func (o *OpenAIChat) Name() string { return "openai" }

func (o *OpenAIChat) buildRequest(p *prompt.Prompt) openai.ChatCompletionRequest {
	msgs := p.Messages()
	chatMsgs := make([]openai.ChatCompletionMessage, len(msgs))
	for i, m := range msgs {
		chatMsgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return openai.ChatCompletionRequest{
		Model:     o.cfg.Model,
		Messages:  chatMsgs,
		MaxTokens: o.cfg.MaxTokens,
	}
}

func (o *OpenAIChat) Generate(ctx context.Context, p *prompt.Prompt) (string, error) {
	if o.cfg.APIKey == "" {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.ReadTimeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, o.buildRequest(p))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (o *OpenAIChat) GenerateStream(ctx context.Context, p *prompt.Prompt) (*Stream, error) {
	if o.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	return newStream(ctx, func(ctx context.Context, emit func(string) bool) {
		ctx, cancel := context.WithTimeout(ctx, o.cfg.ReadTimeout)
		defer cancel()

		stream, err := o.client.CreateChatCompletionStream(ctx, o.buildRequest(p))
		if err != nil {
			log.Printf("openai stream request failed: %v", err)
			emit(sentinelFor(err))
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				log.Printf("openai stream read failed: %v", err)
				emit(sentinelFor(err))
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if delta := resp.Choices[0].Delta.Content; delta != "" {
				if !emit(delta) {
					return
				}
			}
		}
	}), nil
}
