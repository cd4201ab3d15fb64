package rag

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/quorumhq/quorum/internal/domain"
	"github.com/quorumhq/quorum/internal/prompt"
)

// agendaContextChars bounds how much meeting text is fed to the model when
// suggesting agenda items.
const agendaContextChars = 8000

const agendaQuestion = "Based on the meeting content above, suggest 3 to 5 agenda items " +
	"for a follow-up meeting. Return one item per line with no numbering."

// SourceLister lists a meeting's sources with their extracted text.
type SourceLister interface {
	ListByMeeting(ctx context.Context, meetingID string) ([]*domain.Source, error)
}

// AgendaSuggester proposes follow-up agenda items from a meeting's ingested
// content.
type AgendaSuggester struct {
	sources  SourceLister
	provider generator
}

type generator interface {
	Generate(ctx context.Context, p *prompt.Prompt) (string, error)
}

func NewAgendaSuggester(sources SourceLister, provider generator) *AgendaSuggester {
	return &AgendaSuggester{sources: sources, provider: provider}
}

// Suggest returns agenda items for a follow-up meeting, or an empty slice
// when the meeting has no ingested text yet.
func (s *AgendaSuggester) Suggest(ctx context.Context, meetingID string) ([]string, error) {
	sources, err := s.sources.ListByMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	var sections []prompt.Section
	budget := agendaContextChars
	for _, src := range sources {
		text := strings.TrimSpace(src.RawText)
		if text == "" || src.Status != domain.SourceStatusCompleted {
			continue
		}
		if len(text) > budget {
			text = truncateOnRune(text, budget)
		}
		budget -= len(text)
		sections = append(sections, prompt.Section{
			SourceType:   string(src.Kind),
			Ordinal:      len(sections),
			DocumentName: src.FileName,
			Text:         text,
		})
		if budget <= 0 {
			break
		}
	}
	if len(sections) == 0 {
		return []string{}, nil
	}

	raw, err := s.provider.Generate(ctx, prompt.New(sections, nil, agendaQuestion))
	if err != nil {
		return nil, err
	}
	return parseAgendaItems(raw), nil
}

// truncateOnRune cuts text to at most n bytes without splitting a
// multi-byte rune at the cut point.
func truncateOnRune(text string, n int) string {
	if len(text) <= n {
		return text
	}
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}

// parseAgendaItems splits model output into clean one-line items, stripping
// list markers the model adds despite instructions.
func parseAgendaItems(raw string) []string {
	items := []string{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		line = stripNumbering(line)
		if line == "" {
			continue
		}
		items = append(items, line)
	}
	return items
}

// stripNumbering removes a leading "1." or "2)" style marker. Bare numbers
// that start a real item are left alone.
func stripNumbering(line string) string {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(line) || (line[i] != '.' && line[i] != ')') {
		return line
	}
	return strings.TrimSpace(line[i+1:])
}
