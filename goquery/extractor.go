// Package goquery extracts the title and a normalized, indented copy of a
// fetched page using goquery.
package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/harvest"
	"golang.org/x/net/html"
)

// DefaultStrip lists the elements removed before a page is saved.
const DefaultStrip = "script, style, noscript"

var _ harvest.Extractor = (*Extractor)(nil)

// Extractor keeps the whole page rather than guessing at its main content:
// message pages are small and every part of them is content. Scripts and
// styles are removed and the remaining markup is re-indented one element
// per line.
type Extractor struct {
	strip string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithStrip sets the selector of elements removed from the page.
// An empty selector keeps everything.
func WithStrip(selector string) Option {
	return func(e *Extractor) {
		e.strip = selector
	}
}

// NewExtractor creates a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{strip: DefaultStrip}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract implements harvest.Extractor. The title is taken from <title>,
// then og:title, then the first <h1>.
func (e *Extractor) Extract(rawHTML string) (*harvest.ExtractResult, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, harvest.Errorf(harvest.EINVALID, "empty HTML input")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, harvest.Errorf(harvest.EINVALID, "failed to parse HTML: %v", err)
	}

	if e.strip != "" {
		doc.Find(e.strip).Remove()
	}

	var b strings.Builder
	for _, n := range doc.Nodes {
		prettify(&b, n, 0)
	}

	return &harvest.ExtractResult{
		Title:       title(doc),
		ContentHTML: b.String(),
	}, nil
}

func title(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("head title").First().Text()); t != "" {
		return t
	}
	if t, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	return strings.Join(strings.Fields(doc.Find("h1").First().Text()), " ")
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// prettify writes n with one tag or text run per line, indented by depth.
// Whitespace-only text is dropped; <pre> and <textarea> are kept verbatim.
func prettify(b *strings.Builder, n *html.Node, depth int) {
	indent := strings.Repeat(" ", depth)

	switch n.Type {
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			prettify(b, c, depth)
		}

	case html.DoctypeNode:
		b.WriteString("<!DOCTYPE " + n.Data + ">\n")

	case html.CommentNode:
		b.WriteString(indent + "<!--" + n.Data + "-->\n")

	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text == "" {
			return
		}
		if n.Parent != nil && (n.Parent.Data == "script" || n.Parent.Data == "style") {
			b.WriteString(indent + text + "\n")
			return
		}
		b.WriteString(indent + html.EscapeString(text) + "\n")

	case html.ElementNode:
		if n.Data == "pre" || n.Data == "textarea" {
			b.WriteString(indent)
			_ = html.Render(b, n)
			b.WriteString("\n")
			return
		}

		b.WriteString(indent + "<" + n.Data)
		for _, a := range n.Attr {
			name := a.Key
			if a.Namespace != "" {
				name = a.Namespace + ":" + a.Key
			}
			b.WriteString(" " + name + `="` + html.EscapeString(a.Val) + `"`)
		}
		b.WriteString(">\n")
		if voidElements[n.Data] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			prettify(b, c, depth+1)
		}
		b.WriteString(indent + "</" + n.Data + ">\n")
	}
}
