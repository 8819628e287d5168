package pagecontext

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// ExtractText pulls the readable text out of an LMS content page, skipping
// chrome elements like navigation and footers.
func ExtractText(htmlContent []byte) (title string, text string, err error) {
	doc, err := html.Parse(bytes.NewReader(htmlContent))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	title = extractTitle(doc)
	text = cleanText(extractBodyText(doc))
	text = truncateWords(text, maxContextWords)

	return title, text, nil
}

// maxContextWords bounds the excerpt so page context never dominates the
// prompt window.
const maxContextWords = 800

func extractTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return strings.TrimSpace(getNodeText(n))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := extractTitle(c); title != "" {
			return title
		}
	}
	return ""
}

func extractBodyText(n *html.Node) string {
	if n.Type == html.ElementNode {
		tag := n.Data
		if tag == "script" || tag == "style" || tag == "nav" || tag == "footer" || tag == "header" || tag == "aside" {
			return ""
		}
	}

	var text strings.Builder
	if n.Type == html.TextNode {
		text.WriteString(n.Data)
		text.WriteString(" ")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text.WriteString(extractBodyText(c))
	}
	return text.String()
}

func getNodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text.WriteString(getNodeText(c))
	}
	return text.String()
}

func cleanText(text string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(text), " "))
}

func truncateWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
