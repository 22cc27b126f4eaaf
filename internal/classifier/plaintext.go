package classifier

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText strips HTML markup and entities from review text and collapses
// whitespace. Text without markup is only whitespace-collapsed.
func PlainText(text string) string {
	if !strings.ContainsAny(text, "<&") {
		return collapse(text)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return collapse(text)
	}
	doc.Find("script, style").Remove()
	doc.Find("br, p, div, li").Each(func(_ int, s *goquery.Selection) {
		s.AfterHtml(" ")
	})
	return collapse(doc.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
