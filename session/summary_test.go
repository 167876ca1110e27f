package session

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/gleaner/models"
)

func sampleRecords() []models.ArticleRecord {
	return []models.ArticleRecord{
		{Title: "A", Author: "alice", Publication: "PubOne", Claps: 100, Responses: 2, URL: "https://medium.com/p/1"},
		{Title: "B", Author: "alice", Publication: "PubOne", Claps: 300, Responses: 5, URL: "https://medium.com/p/2"},
		{Title: "C", Author: "bob", Publication: "PubTwo", Claps: 50, Responses: 1, URL: "https://medium.com/p/3"},
		{Title: "D", Author: "", Publication: "", Claps: 10, Responses: 0, URL: "https://medium.com/p/4"},
	}
}

func TestBuildSummary_Statistics(t *testing.T) {
	s := BuildSummary(sampleRecords(), 2, 2*time.Hour)

	assert.Equal(t, 4, s.TotalArticles)
	assert.Equal(t, 2, s.NewThisSession)
	assert.Equal(t, 2, s.UniqueAuthors)
	assert.Equal(t, 2, s.UniquePublications)
	assert.Equal(t, 460, s.TotalClaps)
	assert.Equal(t, 8, s.TotalResponses)
	assert.InDelta(t, 2.0, s.ArticlesPerHour, 0.01)
}

func TestBuildSummary_TopAuthors(t *testing.T) {
	s := BuildSummary(sampleRecords(), 0, time.Minute)

	require.Len(t, s.TopAuthors, 2)
	assert.Equal(t, AuthorCount{Author: "alice", Count: 2}, s.TopAuthors[0])
	assert.Equal(t, AuthorCount{Author: "bob", Count: 1}, s.TopAuthors[1])
}

func TestBuildSummary_TopArticlesByClaps(t *testing.T) {
	s := BuildSummary(sampleRecords(), 0, time.Minute)

	require.NotEmpty(t, s.TopArticles)
	assert.Equal(t, "B", s.TopArticles[0].Title)
	assert.Equal(t, 300, s.TopArticles[0].Claps)
}

func TestSummary_Render(t *testing.T) {
	s := BuildSummary(sampleRecords(), 2, 90*time.Minute)
	s.StopReason = "end of feed"

	out := s.Render()
	assert.Contains(t, out, "Total Articles Extracted: 4")
	assert.Contains(t, out, "Stop Reason: end of feed")
	assert.Contains(t, out, "alice: 2 articles")
	assert.Contains(t, out, "300 claps - B")
	assert.Contains(t, out, "1h 30m")
	assert.NotContains(t, out, "may not have reached")

	s.MayBeIncomplete = true
	assert.Contains(t, s.Render(), "may not have reached")
}

func TestTruncate_RuneSafe(t *testing.T) {
	got := truncate(strings.Repeat("日", 80), 60)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("日", 60)+"...", got)

	assert.Equal(t, "short", truncate("short", 60))
}

func TestBuildSummary_Empty(t *testing.T) {
	s := BuildSummary(nil, 0, time.Second)

	assert.Zero(t, s.TotalArticles)
	assert.Empty(t, s.TopAuthors)
	assert.Empty(t, s.TopArticles)
	assert.NotPanics(t, func() { _ = s.Render() })
}
