package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/patternscan/internal/model"
)

func extractMeta(d *document, s *model.PageSnapshot) {
	d.doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		if charset, ok := sel.Attr("charset"); ok && s.Meta.Charset == "" {
			s.Meta.Charset = fragment(charset)
			return
		}
		content := fragment(sel.AttrOr("content", ""))
		switch strings.ToLower(sel.AttrOr("name", "")) {
		case "description":
			s.Meta.Description = content
		case "keywords":
			s.Meta.Keywords = content
		case "viewport":
			s.Meta.Viewport = content
		}
		if strings.EqualFold(sel.AttrOr("http-equiv", ""), "content-type") && s.Meta.Charset == "" {
			if _, cs, ok := strings.Cut(strings.ToLower(content), "charset="); ok {
				s.Meta.Charset = strings.TrimSpace(cs)
			}
		}
	})
}
