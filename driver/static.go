package driver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Static is a browser-less page driver over a single HTML snapshot. It
// cannot scroll, so an infinite feed yields only its initial page: the
// loop's no-growth detector ends the run after the stall threshold.
// Useful for one-shot extraction and for exercising the full pipeline
// without Chromium.
type Static struct {
	client *http.Client
	doc    *goquery.Document
}

// NewStatic returns a snapshot driver that fetches pages over plain HTTP.
func NewStatic() *Static {
	return &Static{client: &http.Client{Timeout: 30 * time.Second}}
}

// NewStaticFromHTML returns a snapshot driver pre-loaded with markup,
// bypassing the network entirely.
func NewStaticFromHTML(rawHTML string) (*Static, error) {
	doc, err := parseHTML(rawHTML)
	if err != nil {
		return nil, err
	}
	return &Static{doc: doc}, nil
}

// Navigate fetches the URL once and parses the body as the snapshot.
func (d *Static) Navigate(ctx context.Context, target string) (int, error) {
	if d.client == nil {
		return 0, errors.New("static driver was built from raw HTML; navigation unavailable")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("parse response body: %w", err)
	}
	d.doc = doc
	return resp.StatusCode, nil
}

// Nodes returns all snapshot elements matching the selector.
func (d *Static) Nodes(selector string) ([]Node, error) {
	if d.doc == nil {
		return nil, errors.New("no document loaded")
	}
	var nodes []Node
	d.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		nodes = append(nodes, staticNode{sel: sel})
	})
	return nodes, nil
}

// WaitFor succeeds immediately when the snapshot already contains a match;
// a static page never grows, so there is nothing to wait for.
func (d *Static) WaitFor(selector string, _ time.Duration) error {
	nodes, err := d.Nodes(selector)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fmt.Errorf("no element matches %q in snapshot", selector)
	}
	return nil
}

// Eval is unsupported: the snapshot has no script engine.
func (d *Static) Eval(string) (float64, error) {
	return 0, errors.New("static driver has no script engine")
}

// Close is a no-op; the snapshot holds no external resources.
func (d *Static) Close() error {
	return nil
}

type staticNode struct {
	sel *goquery.Selection
}

func (n staticNode) Query(selector string) (Node, error) {
	found := n.sel.Find(selector).First()
	if found.Length() == 0 {
		return nil, nil
	}
	return staticNode{sel: found}, nil
}

func (n staticNode) Attribute(name string) (string, error) {
	v, _ := n.sel.Attr(name)
	return v, nil
}

func (n staticNode) Text() (string, error) {
	return n.sel.Text(), nil
}

func parseHTML(rawHTML string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}
