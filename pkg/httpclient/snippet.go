package httpclient

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxSnippetLen = 512

// responseSnippet summarises an error body for FetchError. HTML error pages
// are reduced to their title.
func responseSnippet(header http.Header, body []byte) string {
	if looksLikeHTML(header, body) {
		if title := htmlTitle(body); title != "" {
			return title
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxSnippetLen {
		return s[:maxSnippetLen] + "..."
	}
	return s
}

func looksLikeHTML(header http.Header, body []byte) bool {
	if strings.Contains(strings.ToLower(header.Get("Content-Type")), "text/html") {
		return true
	}
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '<'
}

func htmlTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return firstNonEmpty(
		doc.Find("title").First().Text(),
		doc.Find("h1").First().Text(),
	)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
