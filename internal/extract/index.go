package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/patternscan/internal/model"
)

// textEntry is an element that directly contains text.
type textEntry struct {
	tag   string
	text  string
	lower string
}

// textIndex is built once per document. Keyword passes scan the entries
// instead of re-querying the whole tree for every keyword.
type textIndex struct {
	entries  []textEntry
	bodyText string
}

// skipped elements never contribute visible text.
var skipped = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"svg":      true,
	"iframe":   true,
}

// maxIndexEntries bounds the index on pathological pages.
const maxIndexEntries = 5000

// buildIndex walks <body> once, collecting text-bearing elements and the
// visible body text.
func buildIndex(doc *goquery.Document) *textIndex {
	idx := &textIndex{entries: make([]textEntry, 0)}

	body := doc.Find("body").First()
	if body.Length() == 0 {
		return idx
	}

	var text strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if text.Len() < model.MaxBodyTextSize*2 {
				text.WriteString(n.Data)
				text.WriteByte(' ')
			}
			return
		case html.ElementNode:
			if skipped[n.Data] {
				return
			}
			if len(idx.entries) < maxIndexEntries && hasOwnText(n) {
				t := fragment(nodeText(n, model.MaxFragmentSize*2))
				if t != "" {
					idx.entries = append(idx.entries, textEntry{
						tag:   n.Data,
						text:  t,
						lower: strings.ToLower(t),
					})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range body.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	normalized := norm.NFKC.String(collapse(text.String()))
	idx.bodyText = model.TruncateUTF8(normalized, model.MaxBodyTextSize)
	return idx
}

// hasOwnText reports whether n has a direct non-blank text child.
func hasOwnText(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) != "" {
			return true
		}
	}
	return false
}

// nodeText returns the visible text below n, stopping after limit bytes.
func nodeText(n *html.Node, limit int) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if b.Len() >= limit {
			return
		}
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		case html.ElementNode:
			if skipped[n.Data] {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return b.String()
}

// matchKeywords returns an element for every index entry containing one of
// keywords, up to limit. An entry is reported once, under the first keyword
// it contains.
func (idx *textIndex) matchKeywords(keywords []string, limit int) []model.KeywordElement {
	result := make([]model.KeywordElement, 0)
	for _, e := range idx.entries {
		if len(result) >= limit {
			break
		}
		for _, kw := range keywords {
			if strings.Contains(e.lower, kw) {
				result = append(result, model.KeywordElement{
					Keyword: kw,
					Text:    e.text,
					Tag:     e.tag,
				})
				break
			}
		}
	}
	return result
}
