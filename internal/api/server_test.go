package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/askgov/askgov/internal/answer"
	"github.com/askgov/askgov/internal/chat"
	"github.com/askgov/askgov/internal/conversation"
	"github.com/askgov/askgov/internal/knowledge"
	"github.com/askgov/askgov/internal/log"
	"github.com/askgov/askgov/internal/notify"
)

func newTestServer(t *testing.T, store conversation.Store) *Server {
	t.Helper()

	logger := log.NewNop()
	registry := notify.NewRegistry(logger)

	orch, err := chat.New(chat.Config{
		Guardrail: &chat.FakeGuardrail{},
		Retriever: &chat.FakeRetriever{Passages: []knowledge.Passage{
			{ID: "p1", Content: "Renewals are handled online.", Source: "services/renewal", Score: 0.92},
		}},
		Generator: &chat.FakeGenerator{Answer: answer.Answer{Text: "You can renew online."}},
		Store:     store,
		Notifier:  registry,
		Logger:    logger,
	})
	if err != nil {
		t.Fatalf("chat.New: %v", err)
	}

	srv, err := NewServer(ServerConfig{
		Logger:       logger,
		Orchestrator: orch,
		Store:        store,
		Registry:     registry,
		IsDev:        true,
		RateBurst:    1000,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func TestNewServer_RequiresCollaborators(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	if err == nil {
		t.Fatal("NewServer with empty config should fail")
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, conversation.NewMemStore(0, 0))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.Handler().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode health body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("health status = %q, want %q", body["status"], "ok")
	}
}

func TestReadyEndpoint_NoDependencies(t *testing.T) {
	// Nil pool and redis client skip their checks.
	srv := newTestServer(t, conversation.NewMemStore(0, 0))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/ready", nil)
	srv.Handler().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("GET /ready status = %d, want %d", w.Code, http.StatusOK)
	}
}

func seedRecords(t *testing.T, store conversation.Store) {
	t.Helper()
	ctx := context.Background()

	records := []conversation.Record{
		{
			ConversationID: "conv-1",
			SessionID:      "sess-a",
			Question:       "How do I renew my permit?",
			Answer:         "You can renew online.",
			Citations:      []answer.Citation{{Snippet: "Renewals are handled online.", Source: "services/renewal", Score: 0.92}},
			Feedback:       conversation.FeedbackPositive,
			ResponseTimeMs: 840,
			CreatedAt:      time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		},
		{
			ConversationID: "conv-2",
			SessionID:      "sess-b",
			Question:       "What are the office hours?",
			Answer:         "Offices are open 8am to 5pm.",
			Citations:      []answer.Citation{},
			Feedback:       conversation.FeedbackNegative,
			ResponseTimeMs: 1210,
			CreatedAt:      time.Date(2026, 3, 11, 14, 30, 0, 0, time.UTC),
		},
	}
	for _, rec := range records {
		if err := store.SaveRecord(ctx, rec); err != nil {
			t.Fatalf("SaveRecord(%s): %v", rec.ConversationID, err)
		}
	}
}

func TestListConversations(t *testing.T) {
	store := conversation.NewMemStore(0, 0)
	seedRecords(t, store)
	srv := newTestServer(t, store)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/reports/conversations", nil)
	srv.Handler().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var body struct {
		Conversations []conversation.Record `json:"conversations"`
		Count         int                   `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Count != 2 {
		t.Errorf("count = %d, want 2", body.Count)
	}
}

func TestListConversations_FeedbackFilter(t *testing.T) {
	store := conversation.NewMemStore(0, 0)
	seedRecords(t, store)
	srv := newTestServer(t, store)

	// The client-facing value is accepted and normalized.
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/reports/conversations?feedback=negative", nil)
	srv.Handler().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body struct {
		Conversations []conversation.Record `json:"conversations"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Conversations) != 1 {
		t.Fatalf("got %d conversations, want 1", len(body.Conversations))
	}
	if body.Conversations[0].ConversationID != "conv-2" {
		t.Errorf("conversation ID = %q, want conv-2", body.Conversations[0].ConversationID)
	}
}

func TestListConversations_DateFilter(t *testing.T) {
	store := conversation.NewMemStore(0, 0)
	seedRecords(t, store)
	srv := newTestServer(t, store)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/reports/conversations?date=2026-03-10", nil)
	srv.Handler().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body struct {
		Conversations []conversation.Record `json:"conversations"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Conversations) != 1 {
		t.Fatalf("got %d conversations, want 1", len(body.Conversations))
	}
	if body.Conversations[0].ConversationID != "conv-1" {
		t.Errorf("conversation ID = %q, want conv-1", body.Conversations[0].ConversationID)
	}
}

func TestListConversations_InvalidFilters(t *testing.T) {
	srv := newTestServer(t, conversation.NewMemStore(0, 0))

	tests := []struct {
		name string
		url  string
	}{
		{"bad feedback", "/api/v1/reports/conversations?feedback=meh"},
		{"bad date", "/api/v1/reports/conversations?date=10-03-2026"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, tt.url, nil)
			srv.Handler().ServeHTTP(w, r)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			body := decodeErrorEnvelope(t, w)
			if body.Error != "validation" {
				t.Errorf("error code = %q, want %q", body.Error, "validation")
			}
		})
	}
}

func TestGetConversation_NotFound(t *testing.T) {
	srv := newTestServer(t, conversation.NewMemStore(0, 0))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/reports/conversations/missing", nil)
	srv.Handler().ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestEscalationLifecycle(t *testing.T) {
	store := conversation.NewMemStore(0, 0)
	srv := newTestServer(t, store)

	esc := conversation.Escalation{
		ID:        "esc-1",
		Name:      "Dana Whitfield",
		Email:     "dana@example.com",
		Question:  "My renewal was rejected twice.",
		Status:    conversation.StatusOpen,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(30 * 24 * time.Hour),
	}
	if err := store.SaveEscalation(context.Background(), esc); err != nil {
		t.Fatalf("SaveEscalation: %v", err)
	}

	// List
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/escalations", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, want %d", w.Code, http.StatusOK)
	}
	var listBody struct {
		Escalations []conversation.Escalation `json:"escalations"`
		Count       int                       `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&listBody); err != nil {
		t.Fatalf("decode list body: %v", err)
	}
	if listBody.Count != 1 {
		t.Fatalf("count = %d, want 1", listBody.Count)
	}

	// Get
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/escalations/esc-1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, want %d", w.Code, http.StatusOK)
	}
	var got conversation.Escalation
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode escalation: %v", err)
	}
	if got.Name != esc.Name || got.Status != conversation.StatusOpen {
		t.Errorf("escalation = %+v, want name %q status %q", got, esc.Name, conversation.StatusOpen)
	}

	// Delete
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/escalations/esc-1", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want %d", w.Code, http.StatusNoContent)
	}

	// Delete again -> 404
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/escalations/esc-1", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	srv := newTestServer(t, conversation.NewMemStore(0, 0))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/escalations", nil)
	srv.Handler().ServeHTTP(w, r)

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := w.Header().Get("X-Request-ID"); got == "" {
		t.Error("X-Request-ID should be set by middleware")
	}
}
