package models

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// ArticleRecord is one extracted listing entry. Identity is the URL;
// a content fingerprint catches re-renders whose URL differs only
// cosmetically.
// Records are never mutated after creation: if the same URL is observed
// again, the first capture wins.
type ArticleRecord struct {
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	Author      string `json:"author"`
	Publication string `json:"publication"`
	Date        string `json:"date"`
	Claps       int    `json:"claps"`
	Responses   int    `json:"responses"`
	URL         string `json:"url"`
	ExtractedAt string `json:"extracted_at"`
}

// Valid reports whether the record meets the minimum quality bar:
// a title within the configured length bounds (counted in runes) and an
// absolute URL. Records failing this are still kept in the result set
// (extraction is best-effort); Valid exists so summaries can report how
// many are clean.
func (r ArticleRecord) Valid(minTitleLen, maxTitleLen int) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(r.Title))
	if n < minTitleLen || n > maxTitleLen {
		return false
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
