package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/patternscan/internal/model"
)

// modalSelectors is the fixed list of overlay selectors. Its length bounds
// the modals collection.
var modalSelectors = []string{
	`[role="dialog"]`,
	`[aria-modal="true"]`,
	`dialog`,
	`.modal`,
	`.popup`,
	`.overlay`,
	`.lightbox`,
	`[class*="newsletter"][class*="popup"]`,
}

func extractModals(d *document, s *model.PageSnapshot) {
	for _, selector := range modalSelectors {
		sel := d.doc.Find(selector)
		if sel.Length() == 0 {
			continue
		}
		hidden := 0
		sel.Each(func(_ int, m *goquery.Selection) {
			if isHidden(m) {
				hidden++
			}
		})
		s.Modals = append(s.Modals, model.Modal{
			Selector:    selector,
			Count:       sel.Length(),
			HiddenCount: hidden,
		})
	}
}

// isHidden reports whether an element is hidden by markup alone. Stylesheets
// are blocked during fetching, so only inline styles can be observed.
func isHidden(sel *goquery.Selection) bool {
	if hasAttr(sel, "hidden") || sel.AttrOr("aria-hidden", "") == "true" {
		return true
	}
	if goquery.NodeName(sel) == "dialog" && !hasAttr(sel, "open") {
		return true
	}
	style := strings.ReplaceAll(strings.ToLower(sel.AttrOr("style", "")), " ", "")
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}
