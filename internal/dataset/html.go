package dataset

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// articleSelectors are tried in order to find the main story body.
var articleSelectors = []string{
	"article", "main", ".article-content", ".content", ".post", "#content", "#main",
}

// ExtractArticle pulls the title and body text out of a news page. Paragraphs are
// joined with newlines; pages without <p> elements fall back to the container text.
func ExtractArticle(r io.Reader) (title, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	// Remove unwanted elements
	doc.Find("script, style, nav, footer, aside, header, .ad, .advertisement, .sidebar").Remove()

	title = collapseSpace(doc.Find("title").First().Text())
	if title == "" {
		title = collapseSpace(doc.Find("h1").First().Text())
	}

	var body *goquery.Selection

	for _, selector := range articleSelectors {
		if sel := doc.Find(selector); sel.Length() > 0 {
			body = sel.First()

			break
		}
	}

	if body == nil {
		body = doc.Find("body")
	}

	var paragraphs []string

	body.Find("p").Each(func(_ int, s *goquery.Selection) {
		if p := collapseSpace(s.Text()); p != "" {
			paragraphs = append(paragraphs, p)
		}
	})

	if len(paragraphs) == 0 {
		return title, collapseSpace(body.Text()), nil
	}

	return title, strings.Join(paragraphs, "\n"), nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
