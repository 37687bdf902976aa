package chat

import "github.com/askgov/askgov/internal/knowledge"

// Threshold is the minimum top relevance score required to proceed to
// generation. Below it the orchestrator answers with the low-confidence
// fallback instead of calling the model.
const Threshold = 0.8

// LowConfidenceMessage is the fixed fallback sent when retrieval confidence
// is below Threshold.
const LowConfidenceMessage = "I'm not confident I have accurate information about that. Please consult the agency's official channels for a reliable answer."

// GateDecision is the outcome of the confidence gate.
type GateDecision struct {
	Proceed  bool
	MaxScore float32
}

// EvaluateGate decides whether retrieval results are strong enough to
// ground a generated answer. With no passages the score defaults to zero,
// so an empty corpus never reaches the generator.
func EvaluateGate(passages []knowledge.Passage) GateDecision {
	var maxScore float32
	for _, p := range passages {
		if p.Score > maxScore {
			maxScore = p.Score
		}
	}
	return GateDecision{
		Proceed:  maxScore >= Threshold,
		MaxScore: maxScore,
	}
}
