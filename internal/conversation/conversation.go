// Package conversation persists feedback-backed conversation records and
// escalation requests.
//
// Records are written only when a user submits feedback; a chat turn without
// feedback leaves no trace in the store. Expiry is enforced by storage TTL,
// never by application code.
package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/askgov/askgov/internal/answer"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidFeedback indicates an unknown feedback value.
	ErrInvalidFeedback = errors.New("invalid feedback value")
)

// Stored feedback values. Client-facing values ("positive"/"negative") are
// normalized before persistence.
const (
	FeedbackPositive = "pos"
	FeedbackNegative = "neg"
)

// NormalizeFeedback maps client-facing feedback values to stored ones.
func NormalizeFeedback(v string) (string, error) {
	switch v {
	case "positive", FeedbackPositive:
		return FeedbackPositive, nil
	case "negative", FeedbackNegative:
		return FeedbackNegative, nil
	default:
		return "", ErrInvalidFeedback
	}
}

// Record is one feedback-backed conversation turn.
type Record struct {
	ConversationID string            `json:"conversationId"`
	SessionID      string            `json:"sessionId"`
	Question       string            `json:"question"`
	Answer         string            `json:"answer"`
	Citations      []answer.Citation `json:"citations"`
	Feedback       string            `json:"feedback"`
	ResponseTimeMs int64             `json:"responseTimeMs"`
	CreatedAt      time.Time         `json:"createdAt"`
	ExpiresAt      time.Time         `json:"expiresAt"`
}

// Escalation statuses. Staff resolve escalations out-of-band, so the only
// mutation the API offers is deletion.
const StatusOpen = "open"

// Escalation is a request for human follow-up.
type Escalation struct {
	ID        string    `json:"escalationId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Question  string    `json:"question"`
	SessionID string    `json:"sessionId,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Filter narrows ListRecords results. Zero values mean "any".
type Filter struct {
	SessionID string
	Date      time.Time // matches the UTC calendar day
	Feedback  string
}

// Store persists conversation records and escalations.
// Every write is a single atomic upsert keyed by ID; repeated feedback for
// the same conversation overwrites the previous record.
type Store interface {
	SaveRecord(ctx context.Context, rec Record) error
	GetRecord(ctx context.Context, conversationID string) (Record, error)
	ListRecords(ctx context.Context, f Filter) ([]Record, error)

	SaveEscalation(ctx context.Context, esc Escalation) error
	GetEscalation(ctx context.Context, id string) (Escalation, error)
	ListEscalations(ctx context.Context) ([]Escalation, error)
	DeleteEscalation(ctx context.Context, id string) error
}

// sameUTCDay reports whether two instants fall on the same UTC calendar day.
func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
