package fetch

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// minParagraphRunes drops navigation crumbs and captions from page text.
const minParagraphRunes = 40

// fragmentText turns an HTML fragment from a feed entry into plain
// paragraphs separated by newlines. Plain text passes through.
func fragmentText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	var paragraphs []string
	doc.Find("p, li").Each(func(_ int, s *goquery.Selection) {
		if text := collapse(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) == 0 {
		return collapse(doc.Text())
	}
	return strings.Join(paragraphs, "\n")
}

// pageText extracts the readable paragraphs of an article page. Paragraphs
// inside <article> win over the rest of the page.
func pageText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}
	doc.Find("script, style, nav, header, footer, aside, form").Remove()

	scope := doc.Find("article").First()
	if scope.Length() == 0 {
		scope = doc.Find("body")
	}

	var paragraphs []string
	scope.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := collapse(s.Text())
		if len([]rune(text)) >= minParagraphRunes {
			paragraphs = append(paragraphs, text)
		}
	})
	return strings.Join(paragraphs, "\n"), nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
