package search

import (
	"strings"

	"golang.org/x/net/html"
)

// parseBlock extracts one Result from the outer HTML of a result
// block. The link and title come from the first span that wraps an
// anchor; the snippet joins the text of every span carrying an <em>
// highlight. Blocks without a linked anchor report ok false and are
// skipped by the caller.
func parseBlock(blockHTML string) (Result, bool) {
	doc, err := html.Parse(strings.NewReader(blockHTML))
	if err != nil {
		return Result{}, false
	}

	var link, title string
	var findLink func(n *html.Node) bool
	findLink = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "span" {
			if a := findElement(n, "a"); a != nil {
				link = attrValue(a, "href")
				title = strings.TrimSpace(textContent(a))
				return true
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if findLink(child) {
				return true
			}
		}
		return false
	}
	findLink(doc)

	if link == "" {
		return Result{}, false
	}

	var snippets []string
	var collectSnippets func(n *html.Node)
	collectSnippets = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "span" && findElement(n, "em") != nil {
			if text := strings.TrimSpace(textContent(n)); text != "" {
				snippets = append(snippets, text)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			collectSnippets(child)
		}
	}
	collectSnippets(doc)

	return Result{
		Link:    link,
		Title:   title,
		Snippet: strings.Join(snippets, "\n"),
	}, true
}

// findElement returns the first descendant of n with the given tag,
// or nil. The search does not include n itself.
func findElement(n *html.Node, tag string) *html.Node {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode && child.Data == tag {
			return child
		}
		if found := findElement(child, tag); found != nil {
			return found
		}
	}
	return nil
}

// attrValue returns the value of the named attribute, or "".
func attrValue(n *html.Node, name string) string {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}

// textContent concatenates the text nodes under n in document order.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return sb.String()
}
