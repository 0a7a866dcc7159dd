package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// noise elements carry navigation, scripts and link lists rather than
// document text.
var noiseSelectors = []string{
	"script", "style", "noscript", "iframe",
	"nav", "aside", "footer", "form", "a",
}

// HTML extracts the main text of a page. The content container is the first
// <article>, else <main>, else <body>. Block elements start new lines.
func HTML(body []byte, pageURL string) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Document{}, fmt.Errorf("extract: parse %s: %w", pageURL, err)
	}

	title := strings.TrimSpace(doc.Find(`meta[property="og:title"]`).First().AttrOr("content", ""))
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	var content *goquery.Selection
	for _, tag := range []string{"article", "main", "body"} {
		if sel := doc.Find(tag); sel.Length() > 0 {
			content = sel.First()
			break
		}
	}
	if content == nil {
		return Document{Title: title}, fmt.Errorf("extract: %s: %w", pageURL, ErrNoText)
	}

	var sb strings.Builder
	for _, n := range content.Nodes {
		writeText(&sb, n)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return Document{Title: title}, fmt.Errorf("extract: %s: %w", pageURL, ErrNoText)
	}
	return Document{Title: title, Text: text}, nil
}

func writeText(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		if t := strings.TrimSpace(n.Data); t != "" {
			if sb.Len() > 0 && !endsWithSpace(sb) {
				sb.WriteByte(' ')
			}
			sb.WriteString(t)
		}
		return
	case html.ElementNode:
		if n.DataAtom == atom.Br {
			sb.WriteByte('\n')
			return
		}
	}

	block := n.Type == html.ElementNode && isBlock(n.DataAtom)
	if block && sb.Len() > 0 {
		sb.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(sb, c)
	}
	if block {
		sb.WriteByte('\n')
	}
}

func endsWithSpace(sb *strings.Builder) bool {
	s := sb.String()
	last := s[len(s)-1]
	return last == ' ' || last == '\n'
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Main, atom.Header,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Ul, atom.Ol, atom.Li, atom.Table, atom.Tr, atom.Blockquote, atom.Pre,
		atom.Dl, atom.Dt, atom.Dd:
		return true
	}
	return false
}
