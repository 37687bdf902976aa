package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest(t *testing.T) {
	t.Parallel()

	t.Run("sendMessage", func(t *testing.T) {
		t.Parallel()

		req, err := DecodeRequest([]byte(`{"action":"sendMessage","message":"hi","sessionId":"s1"}`))
		require.NoError(t, err)

		msg, ok := req.(*SendMessage)
		require.True(t, ok)
		assert.Equal(t, "hi", msg.Message)
		assert.Equal(t, "s1", msg.SessionID)
	})

	t.Run("submitFeedback", func(t *testing.T) {
		t.Parallel()

		req, err := DecodeRequest([]byte(`{
			"action":"submitFeedback",
			"conversationId":"conv-1",
			"feedback":"positive",
			"question":"q",
			"answer":"a",
			"responseTimeMs":850,
			"citations":[{"snippet":"s","source":"Guide","score":0.9}]
		}`))
		require.NoError(t, err)

		fb, ok := req.(*SubmitFeedback)
		require.True(t, ok)
		assert.Equal(t, "conv-1", fb.ConversationID)
		assert.Equal(t, int64(850), fb.ResponseTimeMs)
		require.Len(t, fb.Citations, 1)
		assert.Equal(t, "Guide", fb.Citations[0].Source)
	})

	t.Run("submitEscalation", func(t *testing.T) {
		t.Parallel()

		req, err := DecodeRequest([]byte(`{
			"action":"submitEscalation",
			"name":"Jordan Lee",
			"email":"jordan@example.com",
			"question":"help"
		}`))
		require.NoError(t, err)

		esc, ok := req.(*SubmitEscalation)
		require.True(t, ok)
		assert.Equal(t, "jordan@example.com", esc.Email)
	})

	t.Run("unknown action", func(t *testing.T) {
		t.Parallel()

		_, err := DecodeRequest([]byte(`{"action":"doSomething"}`))
		assert.ErrorIs(t, err, ErrUnknownAction)
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()

		_, err := DecodeRequest([]byte(`{"action":`))
		assert.Error(t, err)
	})
}
