package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/askgov/askgov/internal/conversation"
	"github.com/askgov/askgov/internal/log"
)

// reportingHandler serves the staff-facing read endpoints over stored
// conversation records and escalations.
type reportingHandler struct {
	store  conversation.Store
	logger log.Logger
}

// listConversations returns feedback-backed records, optionally filtered
// by sessionId, date (YYYY-MM-DD, UTC day), and feedback value.
func (h *reportingHandler) listConversations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := conversation.Filter{
		SessionID: q.Get("sessionId"),
	}

	if fb := q.Get("feedback"); fb != "" {
		normalized, err := conversation.NormalizeFeedback(fb)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation", "feedback must be positive or negative", h.logger)
			return
		}
		f.Feedback = normalized
	}

	if d := q.Get("date"); d != "" {
		date, err := time.ParseInLocation("2006-01-02", d, time.UTC)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation", "date must be formatted YYYY-MM-DD", h.logger)
			return
		}
		f.Date = date
	}

	records, err := h.store.ListRecords(r.Context(), f)
	if err != nil {
		h.logger.Error("list conversations failed", "error", err, "request_id", requestIDFromContext(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list conversations", h.logger)
		return
	}
	if records == nil {
		records = []conversation.Record{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversations": records,
		"count":         len(records),
	}, h.logger)
}

// getConversation returns a single feedback-backed record by ID.
func (h *reportingHandler) getConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	rec, err := h.store.GetRecord(r.Context(), id)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "conversation not found", h.logger)
			return
		}
		h.logger.Error("get conversation failed", "error", err, "conversation_id", id)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load conversation", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, rec, h.logger)
}

// listEscalations returns all open escalation requests, newest first.
func (h *reportingHandler) listEscalations(w http.ResponseWriter, r *http.Request) {
	escalations, err := h.store.ListEscalations(r.Context())
	if err != nil {
		h.logger.Error("list escalations failed", "error", err, "request_id", requestIDFromContext(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list escalations", h.logger)
		return
	}
	if escalations == nil {
		escalations = []conversation.Escalation{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"escalations": escalations,
		"count":       len(escalations),
	}, h.logger)
}

// getEscalation returns a single escalation by ID.
func (h *reportingHandler) getEscalation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	esc, err := h.store.GetEscalation(r.Context(), id)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "escalation not found", h.logger)
			return
		}
		h.logger.Error("get escalation failed", "error", err, "escalation_id", id)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load escalation", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, esc, h.logger)
}

// deleteEscalation removes an escalation once staff have handled it.
func (h *reportingHandler) deleteEscalation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.store.DeleteEscalation(r.Context(), id); err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "escalation not found", h.logger)
			return
		}
		h.logger.Error("delete escalation failed", "error", err, "escalation_id", id)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete escalation", h.logger)
		return
	}

	h.logger.Info("escalation deleted", "escalation_id", id)
	w.WriteHeader(http.StatusNoContent)
}
