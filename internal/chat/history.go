package chat

import "github.com/firebase/genkit/go/ai"

// maxHistoryTurns bounds the dialogue context passed to generation. Older
// turns fall off; nothing here is persisted.
const maxHistoryTurns = 6

type turn struct {
	question string
	answer   string
}

// History holds the recent turns of one connection's dialogue in memory.
// It is owned by a single connection's read loop and is not safe for
// concurrent use.
type History struct {
	turns []turn
}

// Add appends a completed turn, evicting the oldest when over capacity.
func (h *History) Add(question, answer string) {
	h.turns = append(h.turns, turn{question: question, answer: answer})
	if len(h.turns) > maxHistoryTurns {
		h.turns = h.turns[len(h.turns)-maxHistoryTurns:]
	}
}

// Len returns the number of retained turns.
func (h *History) Len() int {
	return len(h.turns)
}

// Messages renders the retained turns as alternating user/model messages.
func (h *History) Messages() []*ai.Message {
	messages := make([]*ai.Message, 0, len(h.turns)*2)
	for _, t := range h.turns {
		messages = append(messages,
			ai.NewUserMessage(ai.NewTextPart(t.question)),
			ai.NewModelMessage(ai.NewTextPart(t.answer)),
		)
	}
	return messages
}
