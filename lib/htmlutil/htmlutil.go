package htmlutil

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// Anchor keeps a handle on the underlying node so callers can
// rewrite its href before the document is serialized.
type Anchor struct {
	Name string
	Href string
	Node *html.Node
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// removeNonPrintable maps whitespace runes to plain spaces so that
// line-wrapped markup keeps its word boundaries, and drops everything
// else that is not printable.
func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsSpace(c) {
			newStr.WriteRune(' ')
		} else if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = strings.Trim(s, " \t\n")
	return innerWhitespace.ReplaceAllString(s, " ")
}

func GetAnchors(sel *goquery.Selection) []Anchor {
	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		href := ""
		for _, a := range n.Attr {
			if a.Key == "href" {
				href = a.Val
				break
			}
		}

		anchors = append(anchors, Anchor{
			Name: CleanText(GetText(n)),
			Href: href,
			Node: n,
		})
	}
	return anchors
}

// SetAttr overwrites the named attribute on the node, adding it if missing.
func SetAttr(node *html.Node, key, value string) {
	for i, a := range node.Attr {
		if a.Key == key {
			node.Attr[i].Val = value
			return
		}
	}
	node.Attr = append(node.Attr, html.Attribute{Key: key, Val: value})
}

// Absolutize resolves href against base, returning href untouched when it
// does not parse as a url.
func Absolutize(base *url.URL, href string) string {
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(parsed).String()
}
