package docpipe

import (
	"bytes"
	"os"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var htmlConverter = htmltomarkdown.NewConverter(
	htmltomarkdown.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(commonmark.WithHeadingStyle(commonmark.HeadingStyleATX)),
		table.NewTablePlugin(),
	),
)

var hiddenStylePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
	regexp.MustCompile(`(?i)font-size\s*:\s*0([^.1-9]|$)`),
	regexp.MustCompile(`(?i)opacity\s*:\s*0([^.1-9]|$)`),
	regexp.MustCompile(`(?i)(^|[;\s])(left|top|text-indent)\s*:\s*-\d{4,}`),
}

// invisible reports elements a reader never sees: non-content tags, the
// hidden attribute and the CSS tricks used to smuggle text into pages.
func invisible(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Head, atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Iframe, atom.Nav:
		return true
	}
	for _, a := range n.Attr {
		switch a.Key {
		case "hidden":
			return true
		case "aria-hidden":
			if strings.EqualFold(a.Val, "true") {
				return true
			}
		case "style":
			for _, pat := range hiddenStylePatterns {
				if pat.MatchString(a.Val) {
					return true
				}
			}
		}
	}
	return false
}

// extractHTMLFile converts an HTML file to Markdown after pruning invisible
// nodes. The title comes from <title>, or the first <h1>.
func extractHTMLFile(path string) (*parsed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	title := findHTMLTitle(doc, atom.Title)
	pruneInvisible(doc)
	if title == "" {
		title = findHTMLTitle(doc, atom.H1)
	}

	md, err := htmlConverter.ConvertNode(doc)
	if err != nil {
		return nil, err
	}
	res := &parsed{title: title}
	if text := strings.TrimSpace(string(md)); text != "" {
		res.sections = []Section{{Text: text, Type: SectionMarkdown}}
	}
	return res, nil
}

func pruneInvisible(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if invisible(c) {
			n.RemoveChild(c)
		} else {
			pruneInvisible(c)
		}
		c = next
	}
}

// findHTMLTitle returns the text of the first element with the given tag.
func findHTMLTitle(n *html.Node, tag atom.Atom) string {
	if n.Type == html.ElementNode && n.DataAtom == tag {
		return oneLine(nodeText(n))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findHTMLTitle(c, tag); t != "" {
			return t
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
