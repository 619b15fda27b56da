// Package textutil turns raw message bodies into the plain text the
// triage engine reads.
package textutil

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	whitespacePattern = regexp.MustCompile(`[^\S\n]+`)
	newlinePattern    = regexp.MustCompile(`\n{3,}`)
	// Zero-width and other invisible characters common in HTML mail.
	invisiblePattern = regexp.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}\x{00AD}\x{034F}\x{2060}-\x{2064}]+`)
)

// HTMLToText converts an HTML body to plain text, one block element per
// line. Scripts, styles and head content are dropped.
func HTMLToText(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, head, meta, link").Remove()
	doc.Find("p, div, br, h1, h2, h3, h4, h5, h6, li, tr, blockquote").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("\n")
	})

	return cleanText(doc.Text()), nil
}

// BodyText picks the best plain-text rendering of a message: the text
// part when present, otherwise the HTML part converted to text. An HTML
// body that fails to parse falls back to its raw markup.
func BodyText(plain, html string) string {
	if strings.TrimSpace(plain) != "" {
		return cleanText(plain)
	}
	text, err := HTMLToText(html)
	if err != nil {
		return cleanText(html)
	}
	return text
}

func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = invisiblePattern.ReplaceAllString(text, "")
	text = whitespacePattern.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	clean := make([]string, 0, len(lines))
	for _, line := range lines {
		clean = append(clean, strings.TrimSpace(line))
	}
	text = strings.Join(clean, "\n")
	text = newlinePattern.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
