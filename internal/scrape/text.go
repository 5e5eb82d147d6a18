package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"docharvest-backend/internal/shared/sanitize"
)

const (
	minTitleLength   = 3
	maxTitleLength   = 200
	minContentLength = 100
)

type titleCandidate struct {
	selector string
	attr     string
}

// Checked in order; the first usable candidate wins.
var titleCandidates = []titleCandidate{
	{selector: "title"},
	{selector: "h1"},
	{selector: `meta[property="og:title"]`, attr: "content"},
	{selector: `meta[name="twitter:title"]`, attr: "content"},
	{selector: ".title, .page-title"},
	{selector: "header h1"},
}

const noiseSelector = "script, style, noscript, iframe, template, nav, header, footer, aside, " +
	".ad, .ads, .advert, .advertisement, .sidebar, .menu, .navigation, .nav-menu, .cookie-banner"

// Every selector is evaluated; the longest text wins.
var contentSelectors = []string{
	"main",
	"article",
	".content",
	".main-content",
	".post-content",
	".entry-content",
	"#content",
	"#main",
	".container",
	"body",
}

func extractTitle(doc *goquery.Document, host string) string {
	for _, c := range titleCandidates {
		sel := doc.Find(c.selector).First()
		if sel.Length() == 0 {
			continue
		}
		var raw string
		if c.attr != "" {
			raw, _ = sel.Attr(c.attr)
		} else {
			raw = sel.Text()
		}
		title := strings.Join(strings.Fields(sanitize.Text(raw)), " ")
		if n := sanitize.Length(title); n >= minTitleLength && n <= maxTitleLength {
			return title
		}
	}
	return "Content from " + host
}

func removeNoise(doc *goquery.Document) {
	doc.Find(noiseSelector).Remove()
}

func extractContent(doc *goquery.Document) string {
	best := ""
	bestLen := 0
	for _, selector := range contentSelectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			text := selectionText(sel)
			if n := sanitize.Length(text); n > bestLen {
				best, bestLen = text, n
			}
		})
	}
	if bestLen < minContentLength {
		return selectionText(doc.Find("body"))
	}
	return best
}

func selectionText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		writeNodeText(&b, n)
	}
	return tidyLines(b.String())
}

var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Blockquote: true, atom.Br: true,
	atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Figcaption: true, atom.Figure: true, atom.Form: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Hr: true, atom.Li: true, atom.Main: true, atom.Ol: true, atom.P: true,
	atom.Pre: true, atom.Section: true, atom.Table: true, atom.Td: true, atom.Th: true,
	atom.Tr: true, atom.Ul: true,
}

func writeNodeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(collapseSpaces(n.Data))
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Template:
			return
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNodeText(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
}

// collapseSpaces folds whitespace runs to one space, keeping a single
// leading or trailing space so adjacent inline text stays separated.
func collapseSpaces(s string) string {
	if s == "" {
		return ""
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return " "
	}
	out := strings.Join(fields, " ")
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
