package htmltext

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// nonTextElements hold raw text that is not page content.
var nonTextElements = map[string]bool{
	"script":   true,
	"style":    true,
	"template": true,
	"noscript": true,
}

// StrippedText returns the text of every node in the selection with each
// text node trimmed, empty nodes dropped, and the rest concatenated.
func StrippedText(sel *goquery.Selection) string {
	var sb strings.Builder
	for _, n := range sel.Nodes {
		writeStripped(&sb, n)
	}
	return sb.String()
}

// StrippedTexts returns StrippedText for each element of the selection.
func StrippedTexts(sel *goquery.Selection) []string {
	texts := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, StrippedText(s))
	})
	return texts
}

func writeStripped(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			sb.WriteString(text)
		}
		return
	case html.ElementNode:
		if nonTextElements[n.Data] {
			return
		}
	case html.CommentNode, html.DoctypeNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeStripped(sb, c)
	}
}

// Title returns the trimmed text of the document's first <title> element.
func Title(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// CleanText applies NFKC normalization, collapses runs of whitespace to a
// single space and trims the result.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

// CharCount returns the number of characters (runes) in s.
func CharCount(s string) int {
	return len([]rune(s))
}
