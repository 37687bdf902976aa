package chat

import (
	"github.com/askgov/askgov/internal/answer"
)

// Client action identifiers carried in the request envelope.
const (
	ActionSendMessage      = "sendMessage"
	ActionSubmitFeedback   = "submitFeedback"
	ActionSubmitEscalation = "submitEscalation"
)

// Request is one decoded client request. Exactly one concrete type exists
// per action; DecodeRequest produces the matching variant.
type Request interface {
	isRequest()
}

// SendMessage asks a question.
type SendMessage struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// SubmitFeedback attaches a rating to a previously answered conversation.
// This is the only trigger for persisting a conversation record.
type SubmitFeedback struct {
	ConversationID string            `json:"conversationId" validate:"required"`
	Feedback       string            `json:"feedback" validate:"required"`
	Question       string            `json:"question" validate:"required"`
	Answer         string            `json:"answer" validate:"required"`
	SessionID      string            `json:"sessionId,omitempty"`
	ResponseTimeMs int64             `json:"responseTimeMs,omitempty"`
	Citations      []answer.Citation `json:"citations,omitempty"`
}

// SubmitEscalation requests human follow-up.
type SubmitEscalation struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
	Question  string `json:"question" validate:"required"`
	SessionID string `json:"sessionId,omitempty"`
}

func (*SendMessage) isRequest()      {}
func (*SubmitFeedback) isRequest()   {}
func (*SubmitEscalation) isRequest() {}

// Event type identifiers.
const (
	EventTyping                 = "typing"
	EventChunk                  = "chunk"
	EventMessage                = "message"
	EventError                  = "error"
	EventFeedbackConfirmation   = "feedbackConfirmation"
	EventEscalationConfirmation = "escalationConfirmation"
)

// TypingEvent signals that the assistant is working on an answer.
type TypingEvent struct {
	Type     string `json:"type"`
	IsTyping bool   `json:"isTyping"`
}

// ChunkEvent carries one streamed answer fragment. Non-terminal.
type ChunkEvent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// MessageEvent is the terminal success event for a chat turn.
// Citations is always non-nil so clients see [] rather than null.
type MessageEvent struct {
	Type           string            `json:"type"`
	Message        string            `json:"message"`
	Citations      []answer.Citation `json:"citations"`
	ConversationID string            `json:"conversationId,omitempty"`
	SessionID      string            `json:"sessionId,omitempty"`
	ResponseTimeMs int64             `json:"responseTimeMs,omitempty"`
	Question       string            `json:"question,omitempty"`
	Blocked        bool              `json:"blocked,omitempty"`
}

// ErrorEvent is the terminal failure event. Message is always one of the
// fixed UserMessage strings, never a raw internal error.
type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FeedbackConfirmationEvent acknowledges a persisted feedback record.
type FeedbackConfirmationEvent struct {
	Type           string `json:"type"`
	Success        bool   `json:"success"`
	ConversationID string `json:"conversationId"`
	Feedback       string `json:"feedback"`
}

// EscalationConfirmationEvent acknowledges a recorded escalation.
type EscalationConfirmationEvent struct {
	Type         string `json:"type"`
	Success      bool   `json:"success"`
	EscalationID string `json:"escalationId"`
	Message      string `json:"message"`
}

func newTypingEvent(isTyping bool) TypingEvent {
	return TypingEvent{Type: EventTyping, IsTyping: isTyping}
}

func newChunkEvent(text string) ChunkEvent {
	return ChunkEvent{Type: EventChunk, Text: text}
}

// NewErrorEvent builds the terminal error event for a classified failure.
func NewErrorEvent(kind Kind) ErrorEvent {
	return ErrorEvent{Type: EventError, Code: kind.String(), Message: UserMessage(kind)}
}
