// Package extract turns one rendered article node into an ArticleRecord.
// Extraction is best-effort: missing optional fields become empty strings,
// and only a node we cannot identify by URL fails outright. One bad node
// never aborts a batch.
package extract

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/gleaner/config"
	"github.com/use-agent/gleaner/driver"
	"github.com/use-agent/gleaner/models"
)

// placeholderTitle stands in when no title element matches at all;
// garbage-in records are filtered later, not rejected here.
const placeholderTitle = "No title"

// Extractor pulls and normalizes one record's fields from a DOM-like node.
type Extractor struct {
	sel Selectors
	cfg config.ExtractConfig
	now func() time.Time
}

// New builds an Extractor. The selectors must have passed Validate.
func New(sel Selectors, cfg config.ExtractConfig) *Extractor {
	return &Extractor{sel: sel, cfg: cfg, now: time.Now}
}

// Container returns the selector matching one article card, for callers
// that snapshot the feed.
func (e *Extractor) Container() string {
	return e.sel.Container
}

// ProbeURL cheaply reads the article URL off a node without running full
// field extraction, so already-known articles can be skipped early.
// Returns "" when the URL cannot be determined this way.
func (e *Extractor) ProbeURL(n driver.Node) string {
	for _, sel := range e.sel.LinkContainer {
		link, err := n.Query(sel)
		if err != nil || link == nil {
			continue
		}
		href, err := link.Attribute(e.sel.LinkAttr)
		if err != nil || href == "" {
			continue
		}
		return NormalizeURL(href, e.cfg.BaseURL)
	}
	return ""
}

// Extract pulls all fields from one article node. Any error touching the
// node fails only this node; the caller skips it and continues the batch.
func (e *Extractor) Extract(n driver.Node) (models.ArticleRecord, error) {
	var rec models.ArticleRecord

	rec.URL = e.ProbeURL(n)
	if rec.URL == "" {
		return rec, models.NewScrapeError(
			models.ErrCodeExtraction,
			"article node carries no resolvable link",
			nil,
		)
	}

	title, err := e.firstText(n, e.sel.Title)
	if err != nil {
		return rec, fmt.Errorf("title: %w", err)
	}
	rec.Title = CleanText(title, 0)
	if rec.Title == "" {
		rec.Title = placeholderTitle
	}

	snippet, err := e.firstText(n, e.sel.Snippet)
	if err != nil {
		return rec, fmt.Errorf("snippet: %w", err)
	}
	rec.Snippet = CleanText(snippet, e.cfg.MaxSnippetLen)

	rec.Author, err = e.extractAuthor(n)
	if err != nil {
		return rec, fmt.Errorf("author: %w", err)
	}

	publication, err := e.firstText(n, e.sel.Publication)
	if err != nil {
		return rec, fmt.Errorf("publication: %w", err)
	}
	rec.Publication = CleanText(publication, 0)

	rec.Date, err = e.extractDate(n)
	if err != nil {
		return rec, fmt.Errorf("date: %w", err)
	}

	// The claps element renders a composite blob (date, claps, responses
	// joined by line breaks); keep the raw text so ParseClaps can split it.
	clapsRaw, err := e.firstRawText(n, e.sel.Claps)
	if err != nil {
		return rec, fmt.Errorf("claps: %w", err)
	}
	rec.Claps = ParseClaps(clapsRaw)

	responses, err := e.firstText(n, e.sel.Responses)
	if err != nil {
		return rec, fmt.Errorf("responses: %w", err)
	}
	rec.Responses = ParseCount(responses)

	rec.ExtractedAt = e.now().UTC().Format(time.RFC3339)

	if !rec.Valid(e.cfg.MinTitleLen, e.cfg.MaxTitleLen) {
		slog.Debug("record below quality bar, keeping anyway",
			"url", rec.URL, "title", rec.Title)
	}

	return rec, nil
}

// extractAuthor handles the author-anchor ambiguity: an anchor whose href
// contains "@" is a profile link and its full text is the author name; any
// other anchor contributes only its first text line.
func (e *Extractor) extractAuthor(n driver.Node) (string, error) {
	for _, sel := range e.sel.AuthorLink {
		el, err := n.Query(sel)
		if err != nil {
			return "", err
		}
		if el == nil {
			continue
		}
		text, err := el.Text()
		if err != nil {
			return "", err
		}
		href, err := el.Attribute("href")
		if err != nil {
			return "", err
		}
		if strings.Contains(href, "@") {
			return CleanText(text, 0), nil
		}
		first, _, _ := strings.Cut(text, "\n")
		return CleanText(first, 0), nil
	}
	return "", nil
}

// extractDate prefers the machine-readable datetime attribute over the
// element's display text.
func (e *Extractor) extractDate(n driver.Node) (string, error) {
	for _, sel := range e.sel.Date {
		el, err := n.Query(sel)
		if err != nil {
			return "", err
		}
		if el == nil {
			continue
		}
		attr, err := el.Attribute("datetime")
		if err != nil {
			return "", err
		}
		if attr != "" {
			return NormalizeDate(attr), nil
		}
		text, err := el.Text()
		if err != nil {
			return "", err
		}
		return NormalizeDate(CleanText(text, 0)), nil
	}
	return "", nil
}

// firstText returns the whitespace-collapsed text of the first candidate
// selector that matches, or "" when none do.
func (e *Extractor) firstText(n driver.Node, candidates []string) (string, error) {
	raw, err := e.firstRawText(n, candidates)
	if err != nil {
		return "", err
	}
	return CleanText(raw, 0), nil
}

func (e *Extractor) firstRawText(n driver.Node, candidates []string) (string, error) {
	for _, sel := range candidates {
		el, err := n.Query(sel)
		if err != nil {
			return "", err
		}
		if el == nil {
			continue
		}
		return el.Text()
	}
	return "", nil
}
