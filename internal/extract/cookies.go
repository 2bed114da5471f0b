package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/patternscan/internal/model"
)

// cookieMarkers are matched against id and class attributes.
var cookieMarkers = []string{"cookie", "consent", "gdpr"}

// extractCookieNotices records elements whose id or class mentions cookies
// or consent. Elements nested inside an already recorded notice are skipped
// so one banner is reported once.
func extractCookieNotices(d *document, s *model.PageSnapshot) {
	recorded := make(map[*html.Node]bool)

	d.doc.Find("body [id], body [class]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(s.CookieNotices) >= model.MaxCookieNotices {
			return false
		}
		if skipped[goquery.NodeName(sel)] {
			return true
		}
		marker := cookieMarker(sel)
		if marker == "" {
			return true
		}
		for p := sel.Nodes[0].Parent; p != nil; p = p.Parent {
			if recorded[p] {
				return true
			}
		}
		recorded[sel.Nodes[0]] = true

		s.CookieNotices = append(s.CookieNotices, model.CookieNotice{
			Selector:       cssPath(sel, marker),
			Text:           fragment(nodeText(sel.Nodes[0], model.MaxFragmentSize*2)),
			HasInlineStyle: hasAttr(sel, "style"),
		})
		return true
	})
}

// cookieMarker returns the id or class token that identified the notice.
func cookieMarker(sel *goquery.Selection) string {
	id := strings.ToLower(sel.AttrOr("id", ""))
	for _, m := range cookieMarkers {
		if strings.Contains(id, m) {
			return "#" + sel.AttrOr("id", "")
		}
	}
	for _, class := range strings.Fields(sel.AttrOr("class", "")) {
		lower := strings.ToLower(class)
		for _, m := range cookieMarkers {
			if strings.Contains(lower, m) {
				return "." + class
			}
		}
	}
	return ""
}

// cssPath builds a short selector such as "div#cookie-banner".
func cssPath(sel *goquery.Selection, marker string) string {
	return model.TruncateUTF8(goquery.NodeName(sel)+marker, model.MaxFragmentSize)
}
