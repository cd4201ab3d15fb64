// Package rag answers questions over indexed meeting content. It wires
// retrieval, conversation memory, prompt assembly and generation into one
// orchestrated ask path, with a streaming variant.
package rag

import (
	"context"
	"strings"

	"github.com/quorumhq/quorum/internal/convo"
	"github.com/quorumhq/quorum/internal/domain"
	"github.com/quorumhq/quorum/internal/llm"
	"github.com/quorumhq/quorum/internal/prompt"
	"github.com/quorumhq/quorum/internal/vecindex"
)

// NoResultsAnswer is returned verbatim when retrieval finds nothing. The
// model is never called in that case.
const NoResultsAnswer = "Sorry, I couldn't find relevant information in the available documents or transcripts."

// DefaultTopK is how many chunks a question retrieves when unspecified.
const DefaultTopK = 5

// Searcher retrieves scored chunks for a query. A nil scope searches across
// all meetings.
type Searcher interface {
	Search(ctx context.Context, query string, scopeID *string, topK int) []vecindex.SearchResult
}

// History replays and records conversation turns.
type History interface {
	GetContext(ctx context.Context, meetingID *string, userID string) []convo.Entry
	SaveTurn(ctx context.Context, meetingID *string, userID, question, answer string, citedOrdinals []int)
}

// Answer is a completed response with the chunks that grounded it.
type Answer struct {
	Text    string
	Results []vecindex.SearchResult
}

// Answerer is the query orchestrator.
type Answerer struct {
	searcher Searcher
	history  History
	provider llm.Provider
	topK     int
}

func NewAnswerer(searcher Searcher, history History, provider llm.Provider) *Answerer {
	return NewAnswererWithTopK(searcher, history, provider, DefaultTopK)
}

func NewAnswererWithTopK(searcher Searcher, history History, provider llm.Provider, topK int) *Answerer {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Answerer{searcher: searcher, history: history, provider: provider, topK: topK}
}

// Ask answers a question synchronously and records the turn before
// returning. A nil meetingID asks across all meetings. When retrieval
// finds nothing the canned answer comes back and no turn is recorded.
// topK <= 0 retrieves the configured default.
func (a *Answerer) Ask(ctx context.Context, meetingID *string, userID, question string, topK int) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}
	if topK <= 0 {
		topK = a.topK
	}

	results := a.searcher.Search(ctx, question, meetingID, topK)
	if len(results) == 0 {
		// The canned answer is not a turn. Recording it would feed the
		// apology back into every later prompt's history.
		return &Answer{Text: NoResultsAnswer}, nil
	}

	p := a.buildPrompt(ctx, meetingID, userID, question, results)
	text, err := a.provider.Generate(ctx, p)
	if err != nil {
		return nil, err
	}

	a.history.SaveTurn(ctx, meetingID, userID, question, text, p.CitedOrdinals())
	return &Answer{Text: text, Results: results}, nil
}

// AskStream answers a question as a fragment stream. The turn is recorded
// once the stream drains to completion; a stream abandoned via Close or cut
// short by context cancellation records nothing.
func (a *Answerer) AskStream(ctx context.Context, meetingID *string, userID, question string, topK int) (*AnswerStream, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}
	if topK <= 0 {
		topK = a.topK
	}

	results := a.searcher.Search(ctx, question, meetingID, topK)
	if len(results) == 0 {
		return &AnswerStream{
			ctx:    ctx,
			stream: &oneShotStream{fragment: NoResultsAnswer},
		}, nil
	}

	p := a.buildPrompt(ctx, meetingID, userID, question, results)
	stream, err := a.provider.GenerateStream(ctx, p)
	if err != nil {
		return nil, err
	}

	ordinals := p.CitedOrdinals()
	return &AnswerStream{
		Results: results,
		ctx:     ctx,
		stream:  stream,
		done: func(answer string) {
			a.history.SaveTurn(ctx, meetingID, userID, question, answer, ordinals)
		},
	}, nil
}

func (a *Answerer) buildPrompt(ctx context.Context, meetingID *string, userID, question string, results []vecindex.SearchResult) *prompt.Prompt {
	sections := make([]prompt.Section, len(results))
	for i, r := range results {
		sections[i] = prompt.Section{
			SourceType:   r.SourceType,
			Ordinal:      r.Ordinal,
			DocumentName: r.DocumentName,
			Text:         r.Text,
		}
	}

	entries := a.history.GetContext(ctx, meetingID, userID)
	history := make([]prompt.Message, len(entries))
	for i, e := range entries {
		history[i] = prompt.Message{Role: e.Role, Content: e.Content}
	}

	return prompt.New(sections, history, question)
}

type tokenStream interface {
	Recv() (string, bool)
	Close()
}

// AnswerStream yields answer fragments and records the turn after the final
// fragment is delivered.
type AnswerStream struct {
	Results []vecindex.SearchResult

	ctx      context.Context
	stream   tokenStream
	done     func(answer string)
	buf      strings.Builder
	finished bool
}

// Recv returns the next fragment. ok is false once the stream is drained,
// at which point the accumulated answer has been recorded.
func (s *AnswerStream) Recv() (string, bool) {
	fragment, ok := s.stream.Recv()
	if ok {
		s.buf.WriteString(fragment)
		return fragment, true
	}
	if !s.finished {
		s.finished = true
		// Cancellation also closes the underlying stream, so draining to
		// the end is not proof the answer is whole. A truncated answer is
		// never recorded as a turn.
		if s.done != nil && s.ctx.Err() == nil {
			s.done(s.buf.String())
		}
	}
	return "", false
}

// Close abandons the stream without recording a turn.
func (s *AnswerStream) Close() {
	s.finished = true
	s.stream.Close()
}

// oneShotStream delivers a single canned fragment.
type oneShotStream struct {
	fragment string
	sent     bool
}

func (s *oneShotStream) Recv() (string, bool) {
	if s.sent {
		return "", false
	}
	s.sent = true
	return s.fragment, true
}

func (s *oneShotStream) Close() { s.sent = true }
