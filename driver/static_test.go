package driver_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/gleaner/config"
	"github.com/use-agent/gleaner/driver"
	"github.com/use-agent/gleaner/extract"
)

const feedSnapshot = `<!DOCTYPE html>
<html><body>
<article>
  <div data-href="/@alice/understanding-go-contexts-abc123">
    <h2>Understanding Go Contexts</h2>
    <h3>A practical walk through cancellation and deadlines.</h3>
    <a href="/@alice">Alice Chen</a>
    <div data-testid="publication-name">Better Programming</div>
    <time datetime="2024-03-15">Mar 15, 2024</time>
    <div data-testid="clapCount">Mar 15, 2024
146
34</div>
    <span data-testid="responsesCount">34</span>
  </div>
</article>
<article>
  <div data-href="https://medium.com/@bob/minimal-card-def456">
    <h2>A Minimal Card</h2>
  </div>
</article>
</body></html>`

func TestStatic_NodesAndQueries(t *testing.T) {
	drv, err := driver.NewStaticFromHTML(feedSnapshot)
	require.NoError(t, err)

	nodes, err := drv.Nodes("article")
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	title, err := nodes[0].Query("h2")
	require.NoError(t, err)
	require.NotNil(t, title)
	text, err := title.Text()
	require.NoError(t, err)
	assert.Equal(t, "Understanding Go Contexts", text)

	link, err := nodes[0].Query("[data-href]")
	require.NoError(t, err)
	require.NotNil(t, link)
	href, err := link.Attribute("data-href")
	require.NoError(t, err)
	assert.Equal(t, "/@alice/understanding-go-contexts-abc123", href)

	// Absent selector yields a nil node, not an error.
	missing, err := nodes[1].Query("time")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Absent attribute yields the empty string.
	attr, err := nodes[1].Attribute("datetime")
	require.NoError(t, err)
	assert.Empty(t, attr)
}

func TestStatic_WaitForAndEval(t *testing.T) {
	drv, err := driver.NewStaticFromHTML(feedSnapshot)
	require.NoError(t, err)

	assert.NoError(t, drv.WaitFor("article", time.Second))
	assert.Error(t, drv.WaitFor("video", time.Second))

	_, err = drv.Eval(`() => document.body.scrollHeight`)
	assert.Error(t, err)

	assert.NoError(t, drv.Close())
}

func TestStatic_NavigateFetchesAndParses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feedSnapshot))
	}))
	defer srv.Close()

	drv := driver.NewStatic()
	status, err := drv.Navigate(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	nodes, err := drv.Nodes("article")
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
}

func TestStatic_NavigateUnavailableFromRawHTML(t *testing.T) {
	drv, err := driver.NewStaticFromHTML(feedSnapshot)
	require.NoError(t, err)

	_, err = drv.Navigate(context.Background(), "https://example.com")
	assert.Error(t, err)
}

func TestStatic_FullExtraction(t *testing.T) {
	drv, err := driver.NewStaticFromHTML(feedSnapshot)
	require.NoError(t, err)

	sel := extract.DefaultSelectors()
	require.NoError(t, sel.Validate())
	ex := extract.New(sel, config.Load().Extract)

	nodes, err := drv.Nodes(ex.Container())
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	rec, err := ex.Extract(nodes[0])
	require.NoError(t, err)
	assert.Equal(t, "Understanding Go Contexts", rec.Title)
	assert.Equal(t, "A practical walk through cancellation and deadlines.", rec.Snippet)
	assert.Equal(t, "Alice Chen", rec.Author)
	assert.Equal(t, "Better Programming", rec.Publication)
	assert.Equal(t, "2024-03-15T00:00:00Z", rec.Date)
	assert.Equal(t, 146, rec.Claps)
	assert.Equal(t, 34, rec.Responses)
	assert.Equal(t, "https://medium.com/@alice/understanding-go-contexts-abc123", rec.URL)

	minimal, err := ex.Extract(nodes[1])
	require.NoError(t, err)
	assert.Equal(t, "A Minimal Card", minimal.Title)
	assert.Empty(t, minimal.Author)
	assert.Zero(t, minimal.Claps)
	assert.Equal(t, "https://medium.com/@bob/minimal-card-def456", minimal.URL)
}
