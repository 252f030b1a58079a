package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Snapshot is a page's markup with scripts and other noise removed, kept as
// evidence of what the page showed when something went wrong.
type Snapshot struct {
	HTML      string
	Title     string
	Truncated bool
}

// Sanitize parses rawHTML and re-renders it without scripts, styles, embedded
// frames or comments. Structural elements and the attributes used to locate
// elements (id, class, name, type, value, data-*) are preserved. maxLength
// caps the output; zero means no cap.
func Sanitize(rawHTML string, maxLength int) (*Snapshot, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	r := &renderer{max: maxLength}
	r.node(doc, 0)

	return &Snapshot{
		HTML:      r.b.String(),
		Title:     findTitle(doc),
		Truncated: r.truncated,
	}, nil
}

type renderer struct {
	b         strings.Builder
	n         int
	max       int
	truncated bool
}

func (r *renderer) full() bool {
	return r.max > 0 && r.n >= r.max
}

func (r *renderer) write(s string) {
	r.b.WriteString(s)
	r.n += len(s)
}

func (r *renderer) node(n *html.Node, depth int) {
	if r.full() {
		r.truncated = true
		return
	}

	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return
	case html.TextNode:
		r.text(n.Data)
	case html.ElementNode:
		r.element(n, depth)
	default:
		r.children(n, depth)
	}
}

func (r *renderer) children(n *html.Node, depth int) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.node(c, depth)
		if r.truncated {
			return
		}
	}
}

func (r *renderer) text(data string) {
	text := strings.TrimSpace(data)
	if text == "" {
		return
	}
	text = html.EscapeString(text)
	if r.max > 0 && r.n+len(text) > r.max {
		text = text[:r.max-r.n] + "..."
		r.truncated = true
	}
	r.write(text)
}

func (r *renderer) element(n *html.Node, depth int) {
	tag := strings.ToLower(n.Data)
	if droppedTags[tag] {
		return
	}

	if depth > 0 && blockTags[tag] {
		r.write("\n" + strings.Repeat("  ", depth))
	}

	r.write("<" + tag)
	for _, attr := range n.Attr {
		if keepAttribute(tag, attr.Key) {
			r.write(fmt.Sprintf(` %s="%s"`, attr.Key, html.EscapeString(attr.Val)))
		}
	}
	r.write(">")

	if voidTags[tag] {
		return
	}

	r.children(n, depth+1)

	if blockTags[tag] {
		r.write("\n" + strings.Repeat("  ", depth))
	}
	r.write("</" + tag + ">")
}

var droppedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"embed":    true,
	"object":   true,
	"svg":      true,
}

var blockTags = map[string]bool{
	"html": true, "head": true, "body": true,
	"div": true, "p": true,
	"section": true, "header": true, "footer": true, "nav": true, "main": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true,
	"table": true, "thead": true, "tbody": true, "tr": true, "td": true, "th": true,
	"form": true, "fieldset": true, "pre": true,
}

var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// keepAttribute reports whether an attribute helps locate or identify an element.
func keepAttribute(tag, key string) bool {
	key = strings.ToLower(key)
	switch key {
	case "id", "class", "role", "aria-label":
		return true
	}
	if strings.HasPrefix(key, "data-") {
		return true
	}

	switch tag {
	case "a":
		return key == "href"
	case "input", "select", "textarea", "option":
		return key == "name" || key == "type" || key == "value" || key == "selected"
	case "button":
		return key == "type" || key == "name"
	case "form":
		return key == "action" || key == "method"
	case "td", "th":
		return key == "colspan"
	}
	return false
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			return strings.TrimSpace(n.FirstChild.Data)
		}
		return ""
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := findTitle(c); title != "" {
			return title
		}
	}
	return ""
}
