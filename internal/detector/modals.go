package detector

import (
	"fmt"

	"github.com/nao1215/patternscan/internal/model"
)

// detectNaggingModals flags overlays that are visible on first load.
func detectNaggingModals(s *model.PageSnapshot) []model.Finding {
	visible := 0
	selector := ""
	for _, m := range s.Modals {
		if v := m.Visible(); v > 0 {
			visible += v
			if selector == "" {
				selector = m.Selector
			}
		}
	}
	if visible == 0 {
		return nil
	}
	return []model.Finding{rule(RuleNaggingModal).finding(
		fmt.Sprintf("%d overlay element(s) are visible when the page loads.", visible),
		selector,
	)}
}
