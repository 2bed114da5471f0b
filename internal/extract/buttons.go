package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/patternscan/internal/model"
)

const buttonSelector = `button, input[type="button"], input[type="submit"], [role="button"]`

func extractButtons(d *document, s *model.PageSnapshot) {
	d.doc.Find(buttonSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(s.Buttons) >= model.MaxButtons {
			return false
		}
		buttonType := strings.ToLower(strings.TrimSpace(sel.AttrOr("type", "")))
		if buttonType == "" {
			buttonType = goquery.NodeName(sel)
		}
		s.Buttons = append(s.Buttons, model.Button{
			Text:    buttonText(sel),
			Type:    buttonType,
			Class:   fragment(sel.AttrOr("class", "")),
			OnClick: fragment(sel.AttrOr("onclick", "")),
		})
		return true
	})
}

// buttonText returns the visible label, falling back to value and
// aria-label for controls without text content.
func buttonText(sel *goquery.Selection) string {
	if text := fragment(sel.Text()); text != "" {
		return text
	}
	if value := fragment(sel.AttrOr("value", "")); value != "" {
		return value
	}
	return fragment(sel.AttrOr("aria-label", ""))
}
