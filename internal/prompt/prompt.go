// Package prompt assembles grounded prompts from retrieved sections,
// conversation history and the user's question. One assembled prompt renders
// into both a flat transcript and a role-tagged message list, so every
// generation backend sees identical grounding.
package prompt

import (
	"fmt"
	"strings"
)

const systemFrame = `You are a helpful assistant answering questions from meeting transcripts and uploaded documents.

You have access to relevant parts of a transcript provided below. Use this context to answer user questions accurately and concisely.
If the information is not in the provided context, say you don't have that information from the transcript.

RELEVANT TRANSCRIPT SECTIONS:
%s

Answer the user's question based ONLY on the provided transcript sections. Be specific and cite which part of the transcript you're referring to when possible.`

// Section is one retrieved chunk with the provenance needed to cite it.
type Section struct {
	SourceType   string
	Ordinal      int
	DocumentName string
	Text         string
}

// Message is a role-tagged prompt element for chat-style backends.
type Message struct {
	Role    string
	Content string
}

// Prompt is the assembled input for one generation call.
type Prompt struct {
	sections []Section
	history  []Message
	question string
}

// New assembles a prompt. History entries must already be in chronological
// order with roles "user" and "assistant".
func New(sections []Section, history []Message, question string) *Prompt {
	return &Prompt{
		sections: sections,
		history:  history,
		question: strings.TrimSpace(question),
	}
}

func (p *Prompt) system() string {
	tagged := make([]string, len(p.sections))
	for i, s := range p.sections {
		doc := s.DocumentName
		if doc == "" {
			doc = "N/A"
		}
		tagged[i] = fmt.Sprintf("[Source: %s, Chunk %d, Doc: %s] %s", s.SourceType, s.Ordinal, doc, s.Text)
	}
	return fmt.Sprintf(systemFrame, strings.Join(tagged, "\n\n"))
}

// Flatten renders the prompt as a single SYSTEM/CONVERSATION/USER QUESTION
// transcript ending with an open ASSISTANT: slot, for backends that take one
// text block.
func (p *Prompt) Flatten() string {
	parts := []string{"SYSTEM:", strings.TrimSpace(p.system())}
	if len(p.history) > 0 {
		parts = append(parts, "\nCONVERSATION:")
		for _, m := range p.history {
			role := "USER"
			if m.Role == "assistant" {
				role = "ASSISTANT"
			}
			parts = append(parts, fmt.Sprintf("%s: %s", role, strings.TrimSpace(m.Content)))
		}
	}
	parts = append(parts, "\nUSER QUESTION:", p.question, "\nASSISTANT:")
	return strings.Join(parts, "\n")
}

// Messages renders the prompt as a system message, the history and the
// question, for chat-completion backends.
func (p *Prompt) Messages() []Message {
	msgs := make([]Message, 0, len(p.history)+2)
	msgs = append(msgs, Message{Role: "system", Content: p.system()})
	msgs = append(msgs, p.history...)
	msgs = append(msgs, Message{Role: "user", Content: p.question})
	return msgs
}

// Question returns the trimmed user question.
func (p *Prompt) Question() string {
	return p.question
}

// CitedOrdinals lists the ordinals of the sections grounding this prompt.
func (p *Prompt) CitedOrdinals() []int {
	ordinals := make([]int, len(p.sections))
	for i, s := range p.sections {
		ordinals[i] = s.Ordinal
	}
	return ordinals
}
