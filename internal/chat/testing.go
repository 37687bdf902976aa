package chat

import (
	"context"
	"sync"

	"github.com/firebase/genkit/go/ai"

	"github.com/askgov/askgov/internal/answer"
	"github.com/askgov/askgov/internal/guardrail"
	"github.com/askgov/askgov/internal/knowledge"
)

// Test doubles for the orchestrator's collaborators. Shared with the api
// package tests, which exercise the same pipeline over a live WebSocket.

// FakeGuardrail returns a canned moderation result.
type FakeGuardrail struct {
	Blocked bool
	Err     error
	Calls   int
}

func (f *FakeGuardrail) Check(_ context.Context, _ guardrail.Source, text string) (guardrail.Result, error) {
	f.Calls++
	if f.Err != nil {
		return guardrail.Result{}, f.Err
	}
	if f.Blocked {
		return guardrail.Result{Blocked: true, Text: guardrail.SubstituteMessage}, nil
	}
	return guardrail.Result{Blocked: false, Text: text}, nil
}

// FakeRetriever returns canned passages.
type FakeRetriever struct {
	Passages []knowledge.Passage
	Err      error
	Calls    int
}

func (f *FakeRetriever) Search(context.Context, string, ...knowledge.SearchOption) ([]knowledge.Passage, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Passages, nil
}

// FakeGenerator returns a canned answer, optionally streaming it in two
// fragments first.
type FakeGenerator struct {
	Answer answer.Answer
	Err    error
	Calls  int
}

func (f *FakeGenerator) Generate(_ context.Context, _ string, passages []knowledge.Passage, _ []*ai.Message) (answer.Answer, error) {
	f.Calls++
	if f.Err != nil {
		return answer.Answer{}, f.Err
	}
	return f.withCitations(passages), nil
}

func (f *FakeGenerator) GenerateStream(ctx context.Context, _ string, passages []knowledge.Passage, _ []*ai.Message, fn answer.StreamFunc) (answer.Answer, error) {
	f.Calls++
	if f.Err != nil {
		return answer.Answer{}, f.Err
	}
	half := len(f.Answer.Text) / 2
	if err := fn(ctx, f.Answer.Text[:half]); err != nil {
		return answer.Answer{}, err
	}
	if err := fn(ctx, f.Answer.Text[half:]); err != nil {
		return answer.Answer{}, err
	}
	return f.withCitations(passages), nil
}

func (f *FakeGenerator) withCitations(passages []knowledge.Passage) answer.Answer {
	ans := f.Answer
	if ans.Citations == nil {
		ans.Citations = answer.Citations(passages)
	}
	return ans
}

// RecordingNotifier captures every event sent per connection.
type RecordingNotifier struct {
	mu     sync.Mutex
	events map[string][]any
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{events: make(map[string][]any)}
}

func (n *RecordingNotifier) Send(_ context.Context, connID string, event any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events[connID] = append(n.events[connID], event)
}

// Events returns the events sent to connID, in order.
func (n *RecordingNotifier) Events(connID string) []any {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]any(nil), n.events[connID]...)
}
