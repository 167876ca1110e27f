// Package ledger tracks every article identity ever captured, so a feed
// that re-renders old items between growth bursts never produces
// duplicates. Identities grow monotonically: nothing is removed during
// a run.
package ledger

import (
	"github.com/use-agent/gleaner/fingerprint"
	"github.com/use-agent/gleaner/models"
)

// Ledger is the dedup set of captured article URLs and content
// fingerprints. It has a single owner and is never accessed concurrently.
type Ledger struct {
	urls    map[string]struct{}
	ordered []string
	prints  map[uint64]struct{}
}

// New returns an empty Ledger.
func New() *Ledger {
	return &Ledger{
		urls:   make(map[string]struct{}),
		prints: make(map[uint64]struct{}),
	}
}

// Known reports whether the URL was already captured.
func (l *Ledger) Known(url string) bool {
	_, ok := l.urls[url]
	return ok
}

// Record marks a URL as captured without a full record, used when seeding
// from a checkpoint whose record list is authoritative.
func (l *Ledger) Record(url string) {
	if url == "" {
		return
	}
	if _, ok := l.urls[url]; ok {
		return
	}
	l.urls[url] = struct{}{}
	l.ordered = append(l.ordered, url)
}

// Seed replays checkpoint state into the ledger: the URL set plus the
// fingerprints of the restored records.
func (l *Ledger) Seed(urls []string, records []models.ArticleRecord) {
	for _, u := range urls {
		l.Record(u)
	}
	for _, rec := range records {
		l.Record(rec.URL)
		l.prints[fingerprint.Article(rec.Title, rec.Author, rec.URL)] = struct{}{}
	}
}

// Merge appends the batch's genuinely new records and returns that subset
// in encounter order. Records whose URL or content fingerprint is already
// known are dropped silently; matching is exact, since listings with
// formulaic titles legitimately differ by a single token and fuzzy
// matching would drop them. First-seen wins: the ledger never replaces
// an existing capture.
func (l *Ledger) Merge(batch []models.ArticleRecord) []models.ArticleRecord {
	var fresh []models.ArticleRecord
	for _, rec := range batch {
		if rec.URL == "" || l.Known(rec.URL) {
			continue
		}
		fp := fingerprint.Article(rec.Title, rec.Author, rec.URL)
		if _, dup := l.prints[fp]; dup {
			continue
		}
		l.Record(rec.URL)
		l.prints[fp] = struct{}{}
		fresh = append(fresh, rec)
	}
	return fresh
}

// URLs returns all captured URLs in first-seen order.
func (l *Ledger) URLs() []string {
	out := make([]string, len(l.ordered))
	copy(out, l.ordered)
	return out
}

// Len is the number of captured URLs.
func (l *Ledger) Len() int {
	return len(l.urls)
}
