package render

import "strconv"

// ScoreClass is the severity bucket of an AI score. Lower scores are better.
type ScoreClass string

const (
	ScoreExcellent ScoreClass = "excellent"
	ScoreGood      ScoreClass = "good"
	ScoreMedium    ScoreClass = "medium"
	ScorePoor      ScoreClass = "poor"
	ScoreBad       ScoreClass = "bad"
)

// ClassifyScore maps a score onto its bucket. Boundaries are inclusive on the
// lower side: 0.15 is good, 0.2 is medium, 0.3 is poor, 0.4 is bad.
func ClassifyScore(score float64) ScoreClass {
	switch {
	case score < 0.15:
		return ScoreExcellent
	case score < 0.2:
		return ScoreGood
	case score < 0.3:
		return ScoreMedium
	case score < 0.4:
		return ScorePoor
	default:
		return ScoreBad
	}
}

// FormatScore renders a score with three decimals.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 3, 64)
}
