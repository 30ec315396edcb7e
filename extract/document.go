// Package extract holds the primitives shared by every platform parser:
// a small DOM capability interface, locale-aware number parsing, keyword
// detectors, ordered fallback chains and a de-duplicating photo accumulator.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is the read-only view of a parsed page that parsers query.
// It never panics on malformed selectors or missing elements.
type Document interface {
	QuerySelector(selector string) Element
	QuerySelectorAll(selector string) []Element
	// TextContent is the concatenated text of <body>, script bodies included.
	TextContent() string
	// InnerText is the rendered text of <body>: script and style bodies are
	// dropped and block elements are separated by newlines.
	InnerText() string
}

// Element is a single node returned by a Document query.
type Element interface {
	Text() string
	Attr(name string) string
	Tag() string
	// NextElement returns the next sibling element, or nil.
	NextElement() Element
	QuerySelector(selector string) Element
}

// ParseHTML builds a Document from raw markup. Markup that cannot be
// parsed yields an empty Document rather than an error.
func ParseHTML(raw string) Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return emptyDocument{}
	}
	return &htmlDocument{doc: doc}
}

type htmlDocument struct {
	doc *goquery.Document
}

func (d *htmlDocument) QuerySelector(selector string) Element {
	sel := d.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil
	}
	return &htmlElement{sel: sel}
}

func (d *htmlDocument) QuerySelectorAll(selector string) []Element {
	var out []Element
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, &htmlElement{sel: s})
	})
	return out
}

func (d *htmlDocument) TextContent() string {
	return d.doc.Find("body").Text()
}

func (d *htmlDocument) InnerText() string {
	body := d.doc.Find("body")
	if body.Length() == 0 {
		return ""
	}
	var sb strings.Builder
	for _, n := range body.Nodes {
		renderText(&sb, n)
	}
	return sb.String()
}

var skippedTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true, "head": true,
}

var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "section": true, "article": true,
	"header": true, "footer": true, "tr": true, "dt": true, "dd": true, "dl": true,
	"table": true, "nav": true, "aside": true, "main": true, "br": true,
}

func renderText(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		if skippedTags[n.Data] {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderText(sb, c)
	}
	if n.Type == html.ElementNode && blockTags[n.Data] {
		sb.WriteByte('\n')
	}
}

type htmlElement struct {
	sel *goquery.Selection
}

func (e *htmlElement) Text() string {
	return e.sel.Text()
}

func (e *htmlElement) Attr(name string) string {
	v, _ := e.sel.Attr(name)
	return v
}

func (e *htmlElement) Tag() string {
	return goquery.NodeName(e.sel)
}

func (e *htmlElement) NextElement() Element {
	next := e.sel.Next()
	if next.Length() == 0 {
		return nil
	}
	return &htmlElement{sel: next}
}

func (e *htmlElement) QuerySelector(selector string) Element {
	sel := e.sel.Find(selector).First()
	if sel.Length() == 0 {
		return nil
	}
	return &htmlElement{sel: sel}
}

type emptyDocument struct{}

func (emptyDocument) QuerySelector(string) Element      { return nil }
func (emptyDocument) QuerySelectorAll(string) []Element { return nil }
func (emptyDocument) TextContent() string               { return "" }
func (emptyDocument) InnerText() string                 { return "" }

// Text returns the trimmed text of the first element matching selector,
// or "" when nothing matches.
func Text(doc Document, selector string) string {
	el := doc.QuerySelector(selector)
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

// Attr returns the trimmed attribute of the first element matching selector.
func Attr(doc Document, selector, name string) string {
	el := doc.QuerySelector(selector)
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Attr(name))
}

// MetaProperty reads <meta property="..." content="...">.
func MetaProperty(doc Document, property string) string {
	return Attr(doc, `meta[property="`+property+`"]`, "content")
}

// SearchText lowercases the document text for keyword detection, falling
// back to the raw markup when the document has no text at all.
func SearchText(text, raw string) string {
	if strings.TrimSpace(text) == "" {
		return strings.ToLower(raw)
	}
	return strings.ToLower(text)
}
