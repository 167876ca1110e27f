package extract

import (
	"fmt"

	"github.com/andybalholm/cascadia"
)

// Selectors holds the ordered candidate selectors for each field. The first
// structural match wins, which tolerates markup-version drift in the source
// site: older and newer layouts are probed in one pass.
type Selectors struct {
	// Container matches one article card in the feed.
	Container string

	Title       []string
	Snippet     []string
	AuthorLink  []string
	Publication []string
	Date        []string
	Claps       []string
	Responses   []string

	// LinkContainer matches the element carrying the article link in
	// LinkAttr (the feed stores it in a data attribute, not an anchor).
	LinkContainer []string
	LinkAttr      string
}

// DefaultSelectors returns the candidate set for the feed's current and
// recent markup versions.
func DefaultSelectors() Selectors {
	return Selectors{
		Container: "article",
		Title: []string{
			"h2",
			`h3[data-testid="card-title"]`,
			`[data-testid="post-preview-title"]`,
		},
		Snippet: []string{
			`h3:not([data-testid="card-title"])`,
			`p[data-testid="card-description"]`,
		},
		AuthorLink: []string{
			`a[href*="@"]`,
			`a[data-testid="authorName"]`,
		},
		Publication: []string{
			`[data-testid="publication-name"]`,
		},
		Date: []string{
			"time",
			`[data-testid="storyPublishDate"]`,
		},
		Claps: []string{
			`[data-testid="clapCount"]`,
			".l",
		},
		Responses: []string{
			`[data-testid="responsesCount"]`,
			".pw-responses",
		},
		LinkContainer: []string{
			"[data-href]",
		},
		LinkAttr: "data-href",
	}
}

// Validate parses every selector with cascadia so a bad override fails at
// startup instead of silently matching nothing for an entire run.
func (s Selectors) Validate() error {
	groups := [][]string{
		{s.Container},
		s.Title, s.Snippet, s.AuthorLink, s.Publication,
		s.Date, s.Claps, s.Responses, s.LinkContainer,
	}
	for _, group := range groups {
		for _, sel := range group {
			if _, err := cascadia.Parse(sel); err != nil {
				return fmt.Errorf("invalid selector %q: %w", sel, err)
			}
		}
	}
	return nil
}
