package detector

import (
	"fmt"
	"strings"

	"github.com/nao1215/patternscan/internal/model"
)

var (
	acceptPhrases = []string{"accept", "allow", "agree", "got it"}
	acceptWords   = []string{"ok", "okay"}
	rejectPhrases = []string{
		"reject", "decline", "deny", "refuse",
		"necessary only", "essential only", "only necessary", "only essential",
	}
)

// detectCookieConsent checks that cookie notices offer a reject choice and
// do not wall content behind acceptance.
func detectCookieConsent(s *model.PageSnapshot) []model.Finding {
	if len(s.CookieNotices) == 0 {
		return nil
	}

	var findings []model.Finding

	accept, reject := 0, 0
	for _, b := range s.Buttons {
		text := strings.ToLower(b.Text)
		if isAcceptLike(text) {
			accept++
		}
		if containsAny(text, rejectPhrases) {
			reject++
		}
	}
	if accept > 0 && reject == 0 {
		r := rule(RuleCookieForcedAccept)
		findings = append(findings, r.finding(
			fmt.Sprintf("The cookie notice offers %d accept option(s) but no way to reject non-essential cookies.", accept),
			s.CookieNotices[0].Selector,
		))
	}

	texts := make([]string, 0, len(s.CookieNotices))
	for _, n := range s.CookieNotices {
		texts = append(texts, n.Text)
	}
	combined := strings.ToLower(strings.Join(texts, " "))
	if strings.Contains(combined, "continue") && !strings.Contains(combined, "reject") {
		r := rule(RuleCookieWall)
		findings = append(findings, r.finding(
			"The cookie notice treats continuing to use the site as consent and offers no reject option.",
			s.CookieNotices[0].Selector,
		))
	}

	return findings
}

func isAcceptLike(text string) bool {
	if containsAny(text, acceptPhrases) {
		return true
	}
	_, ok := firstTerm(text, acceptWords)
	return ok
}
