package source

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// skipped elements never contribute text.
var skipped = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

// paragraphs end with a blank line; lines end with a single line break.
var (
	paragraphs = map[atom.Atom]bool{
		atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
		atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
		atom.Table: true, atom.Ul: true, atom.Ol: true, atom.Pre: true, atom.Blockquote: true,
		atom.Header: true, atom.Footer: true, atom.Hr: true,
	}
	lines = map[atom.Atom]bool{
		atom.Br: true, atom.Li: true, atom.Tr: true, atom.Dt: true, atom.Dd: true,
	}
)

// htmlText extracts the readable text of an HTML document. Block elements
// become line breaks so that paragraph structure survives for the chunker.
func htmlText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			buf.WriteString(n.Data)
			return
		case html.ElementNode:
			if skipped[n.DataAtom] {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
		if n.Type == html.ElementNode {
			switch {
			case paragraphs[n.DataAtom]:
				buf.WriteString("\n\n")
			case lines[n.DataAtom]:
				buf.WriteString("\n")
			case n.DataAtom == atom.Td || n.DataAtom == atom.Th:
				buf.WriteString(" ")
			}
		}
	}
	extractText(doc)

	return strings.TrimSpace(buf.String()), nil
}
