// Package chat orchestrates one chat turn: guardrail check, retrieval,
// confidence gating, generation, and client notification. It also handles
// the independent feedback and escalation flows.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/askgov/askgov/internal/answer"
	"github.com/askgov/askgov/internal/conversation"
	"github.com/askgov/askgov/internal/guardrail"
	"github.com/askgov/askgov/internal/knowledge"
	"github.com/askgov/askgov/internal/log"
)

// Guardrail moderates text against the content policy.
type Guardrail interface {
	Check(ctx context.Context, source guardrail.Source, text string) (guardrail.Result, error)
}

// Retriever finds scored passages for a query.
type Retriever interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Passage, error)
}

// Generator produces grounded answers.
type Generator interface {
	Generate(ctx context.Context, query string, passages []knowledge.Passage, history []*ai.Message) (answer.Answer, error)
	GenerateStream(ctx context.Context, query string, passages []knowledge.Passage, history []*ai.Message, fn answer.StreamFunc) (answer.Answer, error)
}

// Notifier delivers events to a client connection, best-effort.
type Notifier interface {
	Send(ctx context.Context, connID string, event any)
}

// Config holds the orchestrator's collaborators.
type Config struct {
	Guardrail Guardrail
	Retriever Retriever
	Generator Generator
	Store     conversation.Store
	Notifier  Notifier
	Logger    log.Logger

	// Streaming selects between streamed fragments followed by a terminal
	// message, and a single terminal message.
	Streaming bool

	// EscalationTTL stamps ExpiresAt on new escalations. The store enforces
	// the actual expiry.
	EscalationTTL time.Duration
}

// EscalationReceivedMessage acknowledges a recorded escalation.
const EscalationReceivedMessage = "Your request has been received. Agency staff will contact you using the details you provided."

func (c *Config) validate() error {
	if c.Guardrail == nil {
		return errors.New("guardrail is required")
	}
	if c.Retriever == nil {
		return errors.New("retriever is required")
	}
	if c.Generator == nil {
		return errors.New("generator is required")
	}
	if c.Store == nil {
		return errors.New("conversation store is required")
	}
	if c.Notifier == nil {
		return errors.New("notifier is required")
	}
	return nil
}

// Orchestrator sequences the chat, feedback, and escalation flows.
// Each inbound request produces exactly one terminal client event.
type Orchestrator struct {
	guard     Guardrail
	retriever Retriever
	generator Generator
	store     conversation.Store
	notifier  Notifier
	logger    log.Logger
	streaming bool
	escTTL    time.Duration
	validate  *validator.Validate

	// Swappable for deterministic tests.
	now   func() time.Time
	newID func() string
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid orchestrator config: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	escTTL := cfg.EscalationTTL
	if escTTL <= 0 {
		escTTL = 30 * 24 * time.Hour
	}
	return &Orchestrator{
		guard:     cfg.Guardrail,
		retriever: cfg.Retriever,
		generator: cfg.Generator,
		store:     cfg.Store,
		notifier:  cfg.Notifier,
		logger:    logger,
		streaming: cfg.Streaming,
		escTTL:    escTTL,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

// Handle routes one decoded request to its flow.
func (o *Orchestrator) Handle(ctx context.Context, connID string, req Request, history *History) {
	switch r := req.(type) {
	case *SendMessage:
		o.HandleMessage(ctx, connID, r, history)
	case *SubmitFeedback:
		o.HandleFeedback(ctx, connID, r)
	case *SubmitEscalation:
		o.HandleEscalation(ctx, connID, r)
	default:
		o.logger.Error("unhandled request type", "type", fmt.Sprintf("%T", req))
		o.notifier.Send(ctx, connID, NewErrorEvent(KindInvalidRequest))
	}
}

// HandleMessage runs the chat pipeline for one question. history may be nil
// when the connection carries no prior turns.
func (o *Orchestrator) HandleMessage(ctx context.Context, connID string, req *SendMessage, history *History) {
	started := o.now()

	text := strings.TrimSpace(req.Message)
	if text == "" {
		o.notifier.Send(ctx, connID, NewErrorEvent(KindValidation))
		return
	}

	o.notifier.Send(ctx, connID, newTypingEvent(true))

	// Guardrail fails open: moderation being down must not halt the chat.
	guardRes, err := o.guard.Check(ctx, guardrail.SourceInput, text)
	if err != nil {
		o.logger.Error("guardrail check failed, failing open", "error", err, "conn_id", connID)
		guardRes = guardrail.Result{Blocked: false, Text: text}
	}
	if guardRes.Blocked {
		o.logger.Info("message blocked", "conn_id", connID, "session_id", req.SessionID)
		o.notifier.Send(ctx, connID, MessageEvent{
			Type:      EventMessage,
			Message:   guardRes.Text,
			Citations: []answer.Citation{},
			Blocked:   true,
		})
		return
	}

	passages, err := o.retriever.Search(ctx, text)
	if err != nil {
		o.fail(ctx, connID, Classify("chat.retrieve", err))
		return
	}

	gate := EvaluateGate(passages)
	o.logger.Debug("confidence gate evaluated",
		"conn_id", connID, "passages", len(passages),
		"max_score", gate.MaxScore, "proceed", gate.Proceed)
	if !gate.Proceed {
		o.notifier.Send(ctx, connID, MessageEvent{
			Type:           EventMessage,
			Message:        LowConfidenceMessage,
			Citations:      []answer.Citation{},
			ConversationID: o.newID(),
			SessionID:      req.SessionID,
			ResponseTimeMs: o.sinceMs(started),
			Question:       req.Message,
		})
		return
	}

	var priorTurns []*ai.Message
	if history != nil {
		priorTurns = history.Messages()
	}

	var ans answer.Answer
	if o.streaming {
		ans, err = o.generator.GenerateStream(ctx, text, passages, priorTurns,
			func(ctx context.Context, fragment string) error {
				if fragment != "" {
					o.notifier.Send(ctx, connID, newChunkEvent(fragment))
				}
				return nil
			})
	} else {
		ans, err = o.generator.Generate(ctx, text, passages, priorTurns)
	}
	if err != nil {
		o.fail(ctx, connID, Classify("chat.generate", err))
		return
	}

	if history != nil {
		history.Add(req.Message, ans.Text)
	}

	citations := ans.Citations
	if citations == nil {
		citations = []answer.Citation{}
	}

	// The conversation is not persisted here. The identifier issued below
	// keys a later feedback submission, which is the only write path.
	o.notifier.Send(ctx, connID, MessageEvent{
		Type:           EventMessage,
		Message:        ans.Text,
		Citations:      citations,
		ConversationID: o.newID(),
		SessionID:      req.SessionID,
		ResponseTimeMs: o.sinceMs(started),
		Question:       req.Message,
	})
}

// HandleFeedback validates and persists one feedback submission.
// Retrying with the same conversationId overwrites rather than duplicates.
func (o *Orchestrator) HandleFeedback(ctx context.Context, connID string, req *SubmitFeedback) {
	if err := o.validate.Struct(req); err != nil {
		o.logger.Info("feedback rejected", "error", err, "conn_id", connID)
		o.notifier.Send(ctx, connID, NewErrorEvent(KindValidation))
		return
	}

	feedback, err := conversation.NormalizeFeedback(req.Feedback)
	if err != nil {
		o.notifier.Send(ctx, connID, NewErrorEvent(KindValidation))
		return
	}

	rec := conversation.Record{
		ConversationID: req.ConversationID,
		SessionID:      req.SessionID,
		Question:       req.Question,
		Answer:         req.Answer,
		Citations:      req.Citations,
		Feedback:       feedback,
		ResponseTimeMs: req.ResponseTimeMs,
		CreatedAt:      o.now(),
	}
	if err := o.store.SaveRecord(ctx, rec); err != nil {
		o.fail(ctx, connID, Classify("chat.feedback", err))
		return
	}

	o.notifier.Send(ctx, connID, FeedbackConfirmationEvent{
		Type:           EventFeedbackConfirmation,
		Success:        true,
		ConversationID: req.ConversationID,
		Feedback:       feedback,
	})
}

// HandleEscalation validates and records one human follow-up request.
func (o *Orchestrator) HandleEscalation(ctx context.Context, connID string, req *SubmitEscalation) {
	if err := o.validate.Struct(req); err != nil {
		o.logger.Info("escalation rejected", "error", err, "conn_id", connID)
		o.notifier.Send(ctx, connID, NewErrorEvent(KindValidation))
		return
	}

	now := o.now()
	esc := conversation.Escalation{
		ID:        o.newID(),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Question:  req.Question,
		SessionID: req.SessionID,
		Status:    conversation.StatusOpen,
		CreatedAt: now,
		ExpiresAt: now.Add(o.escTTL),
	}
	if err := o.store.SaveEscalation(ctx, esc); err != nil {
		o.fail(ctx, connID, Classify("chat.escalate", err))
		return
	}

	o.notifier.Send(ctx, connID, EscalationConfirmationEvent{
		Type:         EventEscalationConfirmation,
		Success:      true,
		EscalationID: esc.ID,
		Message:      EscalationReceivedMessage,
	})
}

// fail logs the full error server-side and sends the fixed user-facing
// string for its kind.
func (o *Orchestrator) fail(ctx context.Context, connID string, err *ServiceError) {
	o.logger.Error("request failed", "op", err.Op, "kind", err.Kind.String(), "error", err)
	o.notifier.Send(ctx, connID, NewErrorEvent(err.Kind))
}

func (o *Orchestrator) sinceMs(started time.Time) int64 {
	return o.now().Sub(started).Milliseconds()
}
