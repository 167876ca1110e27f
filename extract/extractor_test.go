package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/gleaner/config"
	"github.com/use-agent/gleaner/driver"
)

// fakeChild is a leaf element with text and attributes.
type fakeChild struct {
	text  string
	attrs map[string]string
}

func (c fakeChild) Query(string) (driver.Node, error) { return nil, nil }
func (c fakeChild) Attribute(name string) (string, error) {
	return c.attrs[name], nil
}
func (c fakeChild) Text() (string, error) { return c.text, nil }

// fakeNode is an article card whose descendants are looked up by selector.
type fakeNode struct {
	children map[string]fakeChild
	errs     map[string]error
}

func (n fakeNode) Query(sel string) (driver.Node, error) {
	if err, ok := n.errs[sel]; ok {
		return nil, err
	}
	if child, ok := n.children[sel]; ok {
		return child, nil
	}
	return nil, nil
}

func (n fakeNode) Attribute(string) (string, error) { return "", nil }
func (n fakeNode) Text() (string, error)            { return "", nil }

func testConfig() config.ExtractConfig {
	return config.ExtractConfig{
		BaseURL:       "https://medium.com",
		MinTitleLen:   5,
		MaxTitleLen:   500,
		MaxSnippetLen: 1000,
	}
}

func fullArticleNode() fakeNode {
	return fakeNode{children: map[string]fakeChild{
		"h2": {text: "Go Concurrency Patterns"},
		`h3:not([data-testid="card-title"])`: {text: "Pipelines and cancellation\nexplained."},
		`a[href*="@"]`:                       {text: "Rob Pike", attrs: map[string]string{"href": "/@robpike"}},
		`[data-testid="publication-name"]`:   {text: "The Go Blog"},
		"time":                               {text: "Jun 24", attrs: map[string]string{"datetime": "2024-06-24"}},
		".l":                                 {text: "Jun 24\n238\n7"},
		".pw-responses":                      {text: "7"},
		"[data-href]":                        {attrs: map[string]string{"data-href": "/p/abc123"}},
	}}
}

func TestExtract_FullRecord(t *testing.T) {
	ex := New(DefaultSelectors(), testConfig())

	rec, err := ex.Extract(fullArticleNode())
	require.NoError(t, err)

	assert.Equal(t, "Go Concurrency Patterns", rec.Title)
	assert.Equal(t, "Pipelines and cancellation explained.", rec.Snippet)
	assert.Equal(t, "Rob Pike", rec.Author)
	assert.Equal(t, "The Go Blog", rec.Publication)
	assert.Equal(t, "2024-06-24T00:00:00Z", rec.Date)
	assert.Equal(t, 238, rec.Claps)
	assert.Equal(t, 7, rec.Responses)
	assert.Equal(t, "https://medium.com/p/abc123", rec.URL)
	assert.NotEmpty(t, rec.ExtractedAt)
	assert.True(t, rec.Valid(5, 500))
}

func TestExtract_MissingTitleUsesPlaceholder(t *testing.T) {
	node := fullArticleNode()
	delete(node.children, "h2")

	ex := New(DefaultSelectors(), testConfig())
	rec, err := ex.Extract(node)
	require.NoError(t, err)

	// Absence of a title never fails the record at this layer.
	assert.Equal(t, "No title", rec.Title)
}

func TestExtract_MissingOptionalFieldsAreEmpty(t *testing.T) {
	node := fakeNode{children: map[string]fakeChild{
		"h2":          {text: "Bare Minimum Article"},
		"[data-href]": {attrs: map[string]string{"data-href": "/p/bare"}},
	}}

	ex := New(DefaultSelectors(), testConfig())
	rec, err := ex.Extract(node)
	require.NoError(t, err)

	assert.Empty(t, rec.Snippet)
	assert.Empty(t, rec.Author)
	assert.Empty(t, rec.Publication)
	assert.Empty(t, rec.Date)
	assert.Zero(t, rec.Claps)
	assert.Zero(t, rec.Responses)
}

func TestExtract_NoLinkFails(t *testing.T) {
	node := fakeNode{children: map[string]fakeChild{
		"h2": {text: "Orphaned Card"},
	}}

	ex := New(DefaultSelectors(), testConfig())
	_, err := ex.Extract(node)
	assert.Error(t, err)
}

func TestExtract_NodeErrorFailsOnlyThisNode(t *testing.T) {
	node := fullArticleNode()
	node.errs = map[string]error{"h2": errors.New("element detached")}

	ex := New(DefaultSelectors(), testConfig())
	_, err := ex.Extract(node)
	assert.Error(t, err)
}

func TestExtract_AuthorWithoutProfileHref(t *testing.T) {
	node := fullArticleNode()
	delete(node.children, `a[href*="@"]`)
	node.children[`a[data-testid="authorName"]`] = fakeChild{
		text:  "Jane Doe\nFollow",
		attrs: map[string]string{"href": "/some/other/link"},
	}

	ex := New(DefaultSelectors(), testConfig())
	rec, err := ex.Extract(node)
	require.NoError(t, err)

	// A non-profile anchor contributes only its first text line.
	assert.Equal(t, "Jane Doe", rec.Author)
}

func TestProbeURL(t *testing.T) {
	ex := New(DefaultSelectors(), testConfig())

	assert.Equal(t, "https://medium.com/p/abc123", ex.ProbeURL(fullArticleNode()))
	assert.Empty(t, ex.ProbeURL(fakeNode{children: map[string]fakeChild{}}))
}

func TestSelectors_Validate(t *testing.T) {
	assert.NoError(t, DefaultSelectors().Validate())

	bad := DefaultSelectors()
	bad.Title = []string{"h2[unclosed"}
	assert.Error(t, bad.Validate())
}
