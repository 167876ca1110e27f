package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/gleaner/checkpoint"
	"github.com/use-agent/gleaner/config"
	"github.com/use-agent/gleaner/driver"
)

type fakeElem struct {
	text  string
	attrs map[string]string
}

func (e fakeElem) Query(string) (driver.Node, error)     { return nil, nil }
func (e fakeElem) Attribute(name string) (string, error) { return e.attrs[name], nil }
func (e fakeElem) Text() (string, error)                 { return e.text, nil }

type fakeArticle struct {
	href  string
	title string
}

func (a fakeArticle) Query(sel string) (driver.Node, error) {
	switch sel {
	case "[data-href]":
		return fakeElem{attrs: map[string]string{"data-href": a.href}}, nil
	case "h2":
		return fakeElem{text: a.title}, nil
	}
	return nil, nil
}

func (a fakeArticle) Attribute(string) (string, error) { return "", nil }
func (a fakeArticle) Text() (string, error)            { return "", nil }

// feedDriver serves a fixed set of article cards and records lifecycle calls.
type feedDriver struct {
	status   int
	navErr   error
	nodes    []driver.Node
	closed   bool
	navCount int
}

func (d *feedDriver) Navigate(context.Context, string) (int, error) {
	d.navCount++
	return d.status, d.navErr
}
func (d *feedDriver) Nodes(string) ([]driver.Node, error)   { return d.nodes, nil }
func (d *feedDriver) WaitFor(string, time.Duration) error   { return nil }
func (d *feedDriver) Eval(string) (float64, error)          { return 0, nil }
func (d *feedDriver) Close() error                          { d.closed = true; return nil }

func testSessionConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Load()
	cfg.ListURL = "https://medium.com/@someone/list/test"
	cfg.OutputDir = t.TempDir()
	cfg.Resume = true
	cfg.Scroll.MaxStalled = 2
	cfg.Scroll.DelayMin = 0
	cfg.Scroll.DelayMax = 0
	return cfg
}

func TestRun_HappyPath(t *testing.T) {
	cfg := testSessionConfig(t)
	drv := &feedDriver{status: 200, nodes: []driver.Node{
		fakeArticle{href: "/p/1", title: "First article title"},
		fakeArticle{href: "/p/2", title: "Second article title"},
	}}

	mgr, err := checkpoint.NewManager(cfg.OutputDir, "sessiont")
	require.NoError(t, err)

	sess := New(cfg, drv, mgr)
	summary, err := sess.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalArticles)
	assert.Equal(t, 2, summary.NewThisSession)
	assert.Equal(t, "end of feed", summary.StopReason)
	assert.True(t, drv.closed, "driver must be released")

	// The final flush is the resume source of truth.
	records, urls := mgr.Load()
	assert.Len(t, records, 2)
	assert.Len(t, urls, 2)
}

func TestRun_ResumeSkipsKnownArticles(t *testing.T) {
	cfg := testSessionConfig(t)
	mgr, err := checkpoint.NewManager(cfg.OutputDir, "sessiont")
	require.NoError(t, err)

	// First session captures two articles.
	first := &feedDriver{status: 200, nodes: []driver.Node{
		fakeArticle{href: "/p/1", title: "First article title"},
		fakeArticle{href: "/p/2", title: "Second article title"},
	}}
	_, err = New(cfg, first, mgr).Run(context.Background())
	require.NoError(t, err)

	// Second session sees the same two plus one new article.
	second := &feedDriver{status: 200, nodes: []driver.Node{
		fakeArticle{href: "/p/1", title: "First article title"},
		fakeArticle{href: "/p/2", title: "Second article title"},
		fakeArticle{href: "/p/3", title: "Third article title"},
	}}
	summary, err := New(cfg, second, mgr).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalArticles)
	assert.Equal(t, 1, summary.NewThisSession)

	records, urls := mgr.Load()
	assert.Len(t, records, 3)
	assert.Len(t, urls, 3)
	for i, want := range []string{"https://medium.com/p/1", "https://medium.com/p/2", "https://medium.com/p/3"} {
		assert.Equal(t, want, records[i].URL)
	}
}

func TestRun_NavigationFailureStillFlushesAndCloses(t *testing.T) {
	cfg := testSessionConfig(t)
	mgr, err := checkpoint.NewManager(cfg.OutputDir, "sessiont")
	require.NoError(t, err)

	// Seed a checkpoint from a previous run.
	firstDrv := &feedDriver{status: 200, nodes: []driver.Node{
		fakeArticle{href: "/p/1", title: "First article title"},
	}}
	_, err = New(cfg, firstDrv, mgr).Run(context.Background())
	require.NoError(t, err)

	failing := &feedDriver{status: 0, navErr: errors.New("connection refused")}
	_, err = New(cfg, failing, mgr).Run(context.Background())
	require.Error(t, err)
	assert.True(t, failing.closed, "driver must be released on the failure path")

	// Checkpoint state on disk remains valid for a future resume.
	records, _ := mgr.Load()
	assert.Len(t, records, 1)
}

func TestRun_Non200StatusAborts(t *testing.T) {
	cfg := testSessionConfig(t)
	mgr, err := checkpoint.NewManager(cfg.OutputDir, "sessiont")
	require.NoError(t, err)

	drv := &feedDriver{status: 503}
	_, err = New(cfg, drv, mgr).Run(context.Background())
	require.Error(t, err)
	assert.True(t, drv.closed)
	assert.Equal(t, 1, drv.navCount, "no automatic retry within the session")
}

func TestRun_InterruptFlushesAccumulatedRecords(t *testing.T) {
	cfg := testSessionConfig(t)
	cfg.Scroll.MaxStalled = 1000
	mgr, err := checkpoint.NewManager(cfg.OutputDir, "sessiont")
	require.NoError(t, err)

	nodes := make([]driver.Node, 0, 4)
	for i := 1; i <= 4; i++ {
		nodes = append(nodes, fakeArticle{
			href:  fmt.Sprintf("/p/%d", i),
			title: fmt.Sprintf("Article number %d", i),
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	drv := &interruptingDriver{feedDriver: feedDriver{status: 200, nodes: nodes}, cancel: cancel}

	summary, err := New(cfg, drv, mgr).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "canceled", summary.StopReason)

	// The checkpoint written during cleanup contains exactly the records
	// merged before the interrupt.
	records, urls := mgr.Load()
	assert.Len(t, records, 4)
	assert.Len(t, urls, 4)
}

// interruptingDriver cancels the run after serving its first snapshot.
type interruptingDriver struct {
	feedDriver
	cancel  context.CancelFunc
	snapped bool
}

func (d *interruptingDriver) Nodes(sel string) ([]driver.Node, error) {
	if d.snapped {
		d.cancel()
	}
	d.snapped = true
	return d.feedDriver.Nodes(sel)
}
