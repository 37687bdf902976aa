package answer

import (
	"fmt"
	"strings"

	"github.com/askgov/askgov/internal/knowledge"
)

// systemInstruction is the fixed persona and sourcing policy for the
// assistant. The model must answer only from the supplied passages.
const systemInstruction = `You are a helpful assistant for a government services portal.
Answer questions about government services, programs, and procedures.

Rules:
- Answer ONLY from the reference passages provided with each question. If the passages do not contain the answer, say you don't have that information and suggest contacting the agency through official channels.
- Be concise, factual, and neutral in tone.
- Do not invent fees, deadlines, phone numbers, or requirements.
- Do not give legal, medical, or financial advice.
- Mention the source document when it helps the user verify the answer.`

// renderContextBlock formats retrieved passages into a single reference
// block appended to the user question.
func renderContextBlock(passages []knowledge.Passage) string {
	if len(passages) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Reference passages:\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "\n[%d] (source: %s)\n%s\n", i+1, p.Source, p.Content)
	}
	return b.String()
}

// renderPrompt combines the user question with the reference block.
func renderPrompt(query string, passages []knowledge.Passage) string {
	block := renderContextBlock(passages)
	if block == "" {
		return query
	}
	return block + "\nQuestion: " + query
}

// snippetMaxLen bounds citation snippets so client payloads stay small.
const snippetMaxLen = 200

// snippet truncates passage content for citation display.
func snippet(content string) string {
	if len(content) <= snippetMaxLen {
		return content
	}
	// Cut on a rune boundary, then back up to the last space when one is
	// reasonably close so words are not split mid-way.
	cut := snippetMaxLen
	for cut > 0 && !isRuneStart(content[cut]) {
		cut--
	}
	if idx := strings.LastIndexByte(content[:cut], ' '); idx > snippetMaxLen/2 {
		cut = idx
	}
	return strings.TrimRight(content[:cut], " ") + "…"
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
