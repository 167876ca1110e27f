package session

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/use-agent/gleaner/models"
)

// AuthorCount pairs an author with how many of their articles were captured.
type AuthorCount struct {
	Author string
	Count  int
}

// Summary is the final run report computed from the merged record set.
type Summary struct {
	TotalArticles      int
	NewThisSession     int
	UniqueAuthors      int
	UniquePublications int
	TotalClaps         int
	TotalResponses     int
	Elapsed            time.Duration
	ArticlesPerHour    float64
	StopReason         string
	MayBeIncomplete    bool
	TopAuthors         []AuthorCount
	TopArticles        []models.ArticleRecord
}

// BuildSummary computes run statistics over the full record set.
func BuildSummary(records []models.ArticleRecord, newThisSession int, elapsed time.Duration) *Summary {
	s := &Summary{
		TotalArticles:  len(records),
		NewThisSession: newThisSession,
		Elapsed:        elapsed,
	}

	authors := make(map[string]int)
	pubs := make(map[string]struct{})
	for _, rec := range records {
		if rec.Author != "" {
			authors[rec.Author]++
		}
		if rec.Publication != "" {
			pubs[rec.Publication] = struct{}{}
		}
		s.TotalClaps += rec.Claps
		s.TotalResponses += rec.Responses
	}
	s.UniqueAuthors = len(authors)
	s.UniquePublications = len(pubs)

	if hours := elapsed.Hours(); hours > 0 {
		s.ArticlesPerHour = float64(len(records)) / hours
	}

	s.TopAuthors = topAuthors(authors, 10)
	s.TopArticles = topByClaps(records, 10)

	return s
}

// Render formats the summary as the plain-text run report.
func (s *Summary) Render() string {
	var b strings.Builder

	b.WriteString("=== SCRAPING SUMMARY ===\n")
	fmt.Fprintf(&b, "Total Articles Extracted: %d\n", s.TotalArticles)
	fmt.Fprintf(&b, "New This Session: %d\n", s.NewThisSession)
	fmt.Fprintf(&b, "Unique Authors: %d\n", s.UniqueAuthors)
	fmt.Fprintf(&b, "Unique Publications: %d\n", s.UniquePublications)
	fmt.Fprintf(&b, "Total Claps: %d\n", s.TotalClaps)
	fmt.Fprintf(&b, "Total Responses: %d\n", s.TotalResponses)
	fmt.Fprintf(&b, "Execution Time: %s\n", formatDuration(s.Elapsed))
	fmt.Fprintf(&b, "Average Articles per Hour: %.1f\n", s.ArticlesPerHour)
	fmt.Fprintf(&b, "Stop Reason: %s\n", s.StopReason)
	if s.MayBeIncomplete {
		b.WriteString("Note: the run may not have reached the actual end of the feed.\n")
	}

	b.WriteString("\n=== TOP AUTHORS BY ARTICLE COUNT ===\n")
	for _, ac := range s.TopAuthors {
		fmt.Fprintf(&b, "%s: %d articles\n", ac.Author, ac.Count)
	}

	b.WriteString("\n=== TOP ARTICLES BY CLAPS ===\n")
	for _, rec := range s.TopArticles {
		fmt.Fprintf(&b, "%d claps - %s\n", rec.Claps, truncate(rec.Title, 60))
	}

	return b.String()
}

func topAuthors(counts map[string]int, n int) []AuthorCount {
	out := make([]AuthorCount, 0, len(counts))
	for author, count := range counts {
		out = append(out, AuthorCount{Author: author, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Author < out[j].Author
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func topByClaps(records []models.ArticleRecord, n int) []models.ArticleRecord {
	out := make([]models.ArticleRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Claps > out[j].Claps
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.1f seconds", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.1f minutes", d.Minutes())
	default:
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		return fmt.Sprintf("%dh %dm", h, m)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
