// Package dom parses captured page HTML for the validators and the X discoverer.
package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func Parse(s string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(s))
}

// TestID selects elements by their data-testid attribute.
func TestID(id string) string {
	return `[data-testid="` + id + `"]`
}

// Text returns the visible text of the selection with whitespace collapsed. Unlike
// Selection.Text, adjacent text nodes are kept apart and script and style bodies are
// skipped.
func Text(sel *goquery.Selection) string {
	if sel == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		case n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style || n.DataAtom == atom.Noscript):
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
