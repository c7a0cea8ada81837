package eval

import (
	"fmt"
	"math"

	"github.com/oscegrade/oscegrade/internal/rubric"
)

// Breakdown is one component's share of the overall score.
type Breakdown struct {
	Score        float64 `json:"score"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// ComponentScores carries the four evaluated scores plus the reserved
// communication slot.
type ComponentScores struct {
	Structure     float64 `json:"structure"`
	KeyQuestions  float64 `json:"key_questions"`
	Reasoning     float64 `json:"reasoning"`
	Summary       float64 `json:"summary"`
	Communication float64 `json:"communication"`
}

// weightTolerance allows for floating point error in rubric weight sums.
const weightTolerance = 0.001

// Aggregate combines component scores into the overall weighted score.
//
// The weight sum is re-checked here even though approval validates it: a
// defective rubric must fail loudly rather than be silently renormalized,
// which would make the stored score unreproducible against the rubric.
func Aggregate(weights rubric.Weights, scores ComponentScores) (float64, map[Component]Breakdown, error) {
	if total := weights.Sum(); math.Abs(total-1.0) > weightTolerance {
		return 0, nil, fmt.Errorf("%w: weights sum to %.4f, want 1.0", ErrRubricDefect, total)
	}

	breakdown := map[Component]Breakdown{
		ComponentStructure: {
			Score: scores.Structure, Weight: weights.Structure,
			Contribution: weights.Structure * scores.Structure,
		},
		ComponentKeyQuestions: {
			Score: scores.KeyQuestions, Weight: weights.KeyQuestions,
			Contribution: weights.KeyQuestions * scores.KeyQuestions,
		},
		ComponentReasoning: {
			Score: scores.Reasoning, Weight: weights.Reasoning,
			Contribution: weights.Reasoning * scores.Reasoning,
		},
		ComponentSummary: {
			Score: scores.Summary, Weight: weights.Summary,
			Contribution: weights.Summary * scores.Summary,
		},
	}
	if weights.Communication > 0 {
		breakdown[ComponentCommunication] = Breakdown{
			Score: scores.Communication, Weight: weights.Communication,
			Contribution: weights.Communication * scores.Communication,
		}
	}

	// Summed in fixed component order. Ranging over the map would add the
	// contributions in randomized order, and float addition is not
	// associative, so repeated runs could disagree in the last bit.
	overall := breakdown[ComponentStructure].Contribution
	overall += breakdown[ComponentKeyQuestions].Contribution
	overall += breakdown[ComponentReasoning].Contribution
	overall += breakdown[ComponentSummary].Contribution
	if b, ok := breakdown[ComponentCommunication]; ok {
		overall += b.Contribution
	}
	return clamp01(overall), breakdown, nil
}
