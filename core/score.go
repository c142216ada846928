package core

// Component caps for the three scoring signals.
const (
	MaxLLMScore        = 50
	MaxStructuralScore = 30
	MaxMetadataScore   = 20
	MaxFinalScore      = 100
)

// Grade is a four-bucket classification of a final score.
type Grade string

const (
	GradeCritical Grade = "CRITICAL"
	GradeHigh     Grade = "HIGH"
	GradeMedium   Grade = "MEDIUM"
	GradeLow      Grade = "LOW"
)

// GradeFor maps a final score onto its grade.
func GradeFor(final int) Grade {
	switch {
	case final >= 80:
		return GradeCritical
	case final >= 60:
		return GradeHigh
	case final >= 40:
		return GradeMedium
	default:
		return GradeLow
	}
}

// ScoreBreakdown holds the three independently capped signals and their sum.
type ScoreBreakdown struct {
	LLM        int
	Structural int
	Metadata   int
	Final      int
}

// NewScoreBreakdown clamps each component into its range and caps the total.
func NewScoreBreakdown(llm, structural, metadata int) ScoreBreakdown {
	b := ScoreBreakdown{
		LLM:        Clamp(llm, 0, MaxLLMScore),
		Structural: Clamp(structural, 0, MaxStructuralScore),
		Metadata:   Clamp(metadata, 0, MaxMetadataScore),
	}
	b.Final = min(b.LLM+b.Structural+b.Metadata, MaxFinalScore)
	return b
}

// Grade returns the grade of the final score.
func (b ScoreBreakdown) Grade() Grade {
	return GradeFor(b.Final)
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
