package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/patternscan/internal/model"
)

func extractLinks(d *document, s *model.PageSnapshot) {
	d.doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(s.Links) >= model.MaxLinks {
			return false
		}
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		text := fragment(sel.Text())
		if text == "" {
			text = fragment(sel.AttrOr("aria-label", sel.AttrOr("title", "")))
		}
		s.Links = append(s.Links, model.Link{
			Href:     model.TruncateUTF8(href, model.MaxFragmentSize),
			Text:     text,
			External: isExternal(d.base, href),
		})
		return true
	})
}

// isExternal reports whether href resolves to a host other than the page's.
// Relative, fragment, mailto and javascript links are internal.
func isExternal(base *url.URL, href string) bool {
	if href == "" || strings.HasPrefix(href, "#") {
		return false
	}
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	resolved := base.ResolveReference(u)
	host := resolved.Hostname()
	if host == "" {
		return false
	}
	return !strings.EqualFold(host, base.Hostname())
}
