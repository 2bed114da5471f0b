package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/patternscan/internal/model"
)

const focusableSelector = `a[href], button, input:not([type="hidden"]), select, textarea, [tabindex]:not([tabindex="-1"])`

func extractAccessibility(d *document, s *model.PageSnapshot) {
	a := &s.AccessibilityElements

	d.doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		alt, ok := img.Attr("alt")
		switch {
		case !ok:
			a.MissingAltTexts++
		case strings.TrimSpace(alt) != "":
			a.AltTexts++
		}
		// alt="" marks a decorative image and counts as neither.
	})

	a.AriaLabels = d.doc.Find("[aria-label]").Length()
	a.HeadingStructure = model.HeadingStructure{
		H1: d.doc.Find("h1").Length(),
		H2: d.doc.Find("h2").Length(),
		H3: d.doc.Find("h3").Length(),
		H4: d.doc.Find("h4").Length(),
		H5: d.doc.Find("h5").Length(),
		H6: d.doc.Find("h6").Length(),
	}
	a.FocusableElements = d.doc.Find(focusableSelector).Length()

	d.doc.Find(`a[href^="#"]`).Each(func(_ int, link *goquery.Selection) {
		if strings.Contains(strings.ToLower(link.Text()), "skip") {
			a.SkipLinks++
		}
	})
}
