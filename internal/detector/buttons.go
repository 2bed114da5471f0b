package detector

import (
	"fmt"
	"strings"

	"github.com/nao1215/patternscan/internal/model"
)

var (
	declinePhrases = []string{
		"no thanks", "no, thanks", "no thank you", "maybe later", "not now",
		"i don't want", "i do not want", "i don’t want", "no, i", "i'll pass",
		"i prefer", "i'd rather",
	}
	incentiveWords = []string{"save", "deal", "offer", "discount", "free", "premium"}
	urgencyWords   = []string{"now", "today", "hurry", "limited", "expires", "last chance"}
)

func buttonSelector(i int, b model.Button) string {
	return fmt.Sprintf("button:nth-of-type(%d)[text=%q]", i+1, quote(b.Text))
}

// detectConfirmshaming flags decline buttons that guilt users about the
// incentive they are refusing.
func detectConfirmshaming(s *model.PageSnapshot) []model.Finding {
	var findings []model.Finding
	for i, b := range s.Buttons {
		text := strings.ToLower(b.Text)
		if !containsAny(text, declinePhrases) || !containsAny(text, incentiveWords) {
			continue
		}
		r := rule(RuleConfirmshaming)
		findings = append(findings, r.finding(
			fmt.Sprintf("Decline button uses guilt-inducing wording: %q.", quote(b.Text)),
			buttonSelector(i, b),
		))
	}
	return findings
}

// detectUrgencyButtons flags calls to action that add time pressure.
func detectUrgencyButtons(s *model.PageSnapshot) []model.Finding {
	var findings []model.Finding
	for i, b := range s.Buttons {
		word, ok := firstTerm(strings.ToLower(b.Text), urgencyWords)
		if !ok {
			continue
		}
		r := rule(RuleUrgencyButton)
		findings = append(findings, r.finding(
			fmt.Sprintf("Button %q pressures users with urgency wording (%q).", quote(b.Text), word),
			buttonSelector(i, b),
		))
	}
	return findings
}
