package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// reduceHTML strips tags that carry no visible content (scripts, styles,
// embedded media) so the truncation budget is spent on text the model can
// actually use. On any parse failure the raw input is returned unchanged;
// reduction is an optimization, not a gate.
func reduceHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("script, style, noscript, svg, iframe, link[rel='stylesheet']").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})
	out, err := doc.Html()
	if err != nil || out == "" {
		return html
	}
	return out
}

// truncate cuts s to at most limit bytes, backing off to a rune boundary
// so the cut never leaves an invalid UTF-8 sequence in the prompt.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
