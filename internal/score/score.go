package score

import (
	"github.com/nao1215/patternscan/internal/model"
)

// Weights of the score model.
const (
	// MaxScore is the score of a page without findings.
	MaxScore = 100

	// MinScore is the floor of the score.
	MinScore = 0

	// DarkPenalty is subtracted for every dark finding.
	DarkPenalty = 15

	// GreyPenalty is subtracted for every grey finding.
	GreyPenalty = 8

	// WhiteBonus is added for every white finding.
	WhiteBonus = 5
)

// Verdict thresholds, inclusive lower bounds.
const (
	GoodThreshold        = 80
	ModerateThreshold    = 60
	SignificantThreshold = 40
)

// Score counts findings per pattern type and computes the clamped total.
func Score(findings []model.Finding) model.OverallScore {
	counts := model.CountByType(findings)
	s := model.OverallScore{
		DarkPatterns:  counts[model.PatternDark],
		GreyPatterns:  counts[model.PatternGrey],
		WhitePatterns: counts[model.PatternWhite],
	}
	s.TotalScore = Total(s.DarkPatterns, s.GreyPatterns, s.WhitePatterns)
	return s
}

// Total computes the clamped score from pattern counts. Negative counts are
// treated as zero; only the final sum is clamped.
func Total(dark, grey, white int) int {
	dark, grey, white = max(dark, 0), max(grey, 0), max(white, 0)
	total := MaxScore - DarkPenalty*dark - GreyPenalty*grey + WhiteBonus*white
	return min(max(total, MinScore), MaxScore)
}
