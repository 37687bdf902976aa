// Package answer generates grounded answers from retrieved passages using
// Gemini via Genkit.
package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"google.golang.org/genai"

	"github.com/askgov/askgov/internal/knowledge"
	"github.com/askgov/askgov/internal/log"
)

// Generation parameters. Fixed rather than configurable: low temperature
// keeps answers close to the source passages.
const (
	maxOutputTokens = 1024
	temperature     = float32(0.2)
	topP            = float32(0.9)
)

// fallbackText is returned when the model produces an empty response.
const fallbackText = "I wasn't able to produce an answer to that question. Please try rephrasing it, or contact the agency through official channels."

// Citation points at the passage an answer was grounded on.
type Citation struct {
	Snippet string  `json:"snippet"`
	Source  string  `json:"source"`
	Score   float32 `json:"score"`
}

// Answer is a generated response with its supporting citations.
type Answer struct {
	Text      string
	Citations []Citation
}

// StreamFunc receives each text fragment as the model produces it.
type StreamFunc func(ctx context.Context, fragment string) error

// Gemini generates answers with a Gemini model.
type Gemini struct {
	g         *genkit.Genkit
	modelName string
	logger    log.Logger
}

// NewGemini creates a Gemini generator.
func NewGemini(g *genkit.Genkit, modelName string, logger log.Logger) (*Gemini, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Gemini{g: g, modelName: modelName, logger: logger}, nil
}

// Generate produces a complete answer in one call.
func (x *Gemini) Generate(ctx context.Context, query string, passages []knowledge.Passage, history []*ai.Message) (Answer, error) {
	return x.generate(ctx, query, passages, history, nil)
}

// GenerateStream produces an answer while forwarding text fragments to fn
// as they arrive. The complete answer is returned after generation ends.
func (x *Gemini) GenerateStream(ctx context.Context, query string, passages []knowledge.Passage, history []*ai.Message, fn StreamFunc) (Answer, error) {
	if fn == nil {
		return Answer{}, fmt.Errorf("stream callback is required")
	}
	return x.generate(ctx, query, passages, history, fn)
}

func (x *Gemini) generate(ctx context.Context, query string, passages []knowledge.Passage, history []*ai.Message, fn StreamFunc) (Answer, error) {
	messages := make([]*ai.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(renderPrompt(query, passages))))

	opts := []ai.GenerateOption{
		ai.WithModelName("googleai/" + x.modelName),
		ai.WithSystem(systemInstruction),
		ai.WithMessages(messages...),
		ai.WithConfig(&genai.GenerateContentConfig{
			MaxOutputTokens: maxOutputTokens,
			Temperature:     genai.Ptr(temperature),
			TopP:            genai.Ptr(topP),
		}),
	}
	if fn != nil {
		opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			return fn(ctx, chunk.Text())
		}))
	}

	x.logger.Debug("generating answer",
		"model", x.modelName,
		"passages", len(passages),
		"history_messages", len(history),
		"streaming", fn != nil)

	resp, err := genkit.Generate(ctx, x.g, opts...)
	if err != nil {
		return Answer{}, fmt.Errorf("generation request: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		x.logger.Warn("model returned empty response")
		text = fallbackText
	}

	return Answer{
		Text:      text,
		Citations: Citations(passages),
	}, nil
}

// Citations converts retrieved passages to displayable citations, keeping
// retrieval order.
func Citations(passages []knowledge.Passage) []Citation {
	citations := make([]Citation, 0, len(passages))
	for _, p := range passages {
		citations = append(citations, Citation{
			Snippet: snippet(p.Content),
			Source:  p.Source,
			Score:   p.Score,
		})
	}
	return citations
}
