package answer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askgov/askgov/internal/knowledge"
)

func TestRenderPrompt(t *testing.T) {
	t.Parallel()

	passages := []knowledge.Passage{
		{Content: "Renew online at the portal.", Source: "Passport Guide", Score: 0.91},
		{Content: "Bring two photos.", Source: "Photo Requirements", Score: 0.84},
	}

	prompt := renderPrompt("How do I renew my passport?", passages)

	assert.Contains(t, prompt, "[1] (source: Passport Guide)")
	assert.Contains(t, prompt, "[2] (source: Photo Requirements)")
	assert.Contains(t, prompt, "Renew online at the portal.")
	assert.True(t, strings.HasSuffix(prompt, "Question: How do I renew my passport?"))
}

func TestRenderPrompt_NoPassages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "the question", renderPrompt("the question", nil))
}

func TestSnippet(t *testing.T) {
	t.Parallel()

	short := "A short passage."
	assert.Equal(t, short, snippet(short))

	long := strings.Repeat("word ", 100)
	s := snippet(long)
	assert.LessOrEqual(t, len(s), snippetMaxLen+len("…"))
	assert.True(t, strings.HasSuffix(s, "…"))
	assert.NotContains(t, s, "  ")
}

func TestSnippet_MultibyteBoundary(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("政府服務指南", 50)
	s := snippet(long)
	// Truncation must not split a UTF-8 sequence.
	assert.True(t, strings.HasSuffix(s, "…"))
	for _, r := range s {
		assert.NotEqual(t, '�', r)
	}
}

func TestCitations(t *testing.T) {
	t.Parallel()

	passages := []knowledge.Passage{
		{Content: strings.Repeat("x", 300), Source: "Guide A", Score: 0.9},
		{Content: "short", Source: "Guide B", Score: 0.82},
	}

	citations := Citations(passages)
	require.Len(t, citations, 2)

	assert.Equal(t, "Guide A", citations[0].Source)
	assert.InDelta(t, 0.9, citations[0].Score, 0.001)
	assert.True(t, len(citations[0].Snippet) < 300)
	assert.Equal(t, "short", citations[1].Snippet)
}

func TestCitations_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Citations(nil))
}
