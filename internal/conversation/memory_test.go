package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFeedback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"positive", FeedbackPositive, false},
		{"negative", FeedbackNegative, false},
		{"pos", FeedbackPositive, false},
		{"neg", FeedbackNegative, false},
		{"meh", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := NormalizeFeedback(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFeedback)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMemStore_RecordRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewMemStore(0, 0)
	ctx := context.Background()

	rec := Record{
		ConversationID: "c1",
		SessionID:      "s1",
		Question:       "How do I renew my passport?",
		Answer:         "Online or at a service center.",
		Feedback:       FeedbackPositive,
		CreatedAt:      time.Now(),
	}
	require.NoError(t, store.SaveRecord(ctx, rec))

	got, err := store.GetRecord(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, rec.Question, got.Question)
	assert.Equal(t, FeedbackPositive, got.Feedback)

	_, err = store.GetRecord(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStore_SaveRecordIsUpsert(t *testing.T) {
	t.Parallel()

	store := NewMemStore(0, 0)
	ctx := context.Background()

	rec := Record{ConversationID: "c1", Feedback: FeedbackPositive, CreatedAt: time.Now()}
	require.NoError(t, store.SaveRecord(ctx, rec))

	rec.Feedback = FeedbackNegative
	require.NoError(t, store.SaveRecord(ctx, rec))

	got, err := store.GetRecord(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, FeedbackNegative, got.Feedback)

	records, err := store.ListRecords(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestMemStore_ListRecordsFilters(t *testing.T) {
	t.Parallel()

	store := NewMemStore(0, 0)
	ctx := context.Background()

	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveRecord(ctx, Record{
		ConversationID: "c1", SessionID: "s1", Feedback: FeedbackPositive, CreatedAt: day1,
	}))
	require.NoError(t, store.SaveRecord(ctx, Record{
		ConversationID: "c2", SessionID: "s1", Feedback: FeedbackNegative, CreatedAt: day2,
	}))
	require.NoError(t, store.SaveRecord(ctx, Record{
		ConversationID: "c3", SessionID: "s2", Feedback: FeedbackPositive, CreatedAt: day2,
	}))

	bySession, err := store.ListRecords(ctx, Filter{SessionID: "s1"})
	require.NoError(t, err)
	assert.Len(t, bySession, 2)
	// Newest first.
	assert.Equal(t, "c2", bySession[0].ConversationID)

	byFeedback, err := store.ListRecords(ctx, Filter{Feedback: FeedbackPositive})
	require.NoError(t, err)
	assert.Len(t, byFeedback, 2)

	byDate, err := store.ListRecords(ctx, Filter{Date: day1})
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.Equal(t, "c1", byDate[0].ConversationID)

	combined, err := store.ListRecords(ctx, Filter{SessionID: "s1", Feedback: FeedbackPositive})
	require.NoError(t, err)
	require.Len(t, combined, 1)
	assert.Equal(t, "c1", combined[0].ConversationID)
}

func TestMemStore_SaveRecordStampsExpiry(t *testing.T) {
	t.Parallel()

	store := NewMemStore(time.Hour, time.Hour)
	ctx := context.Background()

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	require.NoError(t, store.SaveRecord(ctx, Record{ConversationID: "c1", CreatedAt: current}))

	got, err := store.GetRecord(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, current.Add(time.Hour), got.ExpiresAt)
}

func TestMemStore_RecordExpiry(t *testing.T) {
	t.Parallel()

	store := NewMemStore(time.Hour, time.Hour)
	ctx := context.Background()

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	require.NoError(t, store.SaveRecord(ctx, Record{ConversationID: "c1", CreatedAt: current}))

	_, err := store.GetRecord(ctx, "c1")
	require.NoError(t, err)

	current = current.Add(2 * time.Hour)
	_, err = store.GetRecord(ctx, "c1")
	assert.ErrorIs(t, err, ErrNotFound)

	records, err := store.ListRecords(ctx, Filter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMemStore_Escalations(t *testing.T) {
	t.Parallel()

	store := NewMemStore(0, 0)
	ctx := context.Background()

	esc := Escalation{
		ID:        "e1",
		Name:      "Jordan Lee",
		Email:     "jordan@example.com",
		Question:  "My benefits application is stuck.",
		Status:    StatusOpen,
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.SaveEscalation(ctx, esc))

	got, err := store.GetEscalation(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, got.Status)

	list, err := store.ListEscalations(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, store.DeleteEscalation(ctx, "e1"))
	assert.ErrorIs(t, store.DeleteEscalation(ctx, "e1"), ErrNotFound)

	list, err = store.ListEscalations(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
