// Package driver abstracts the browser-automation backend behind a small
// page-driver interface so the scroll-extraction logic never touches a
// concrete browser library. The Rod-backed implementation drives a real
// Chromium; the static implementation works on a single HTML snapshot.
package driver

import (
	"context"
	"time"
)

// Node is an opaque handle to one rendered element.
type Node interface {
	// Query returns the first descendant matching the CSS selector,
	// or (nil, nil) when nothing matches.
	Query(selector string) (Node, error)

	// Attribute returns the value of the named attribute, or "" when
	// the attribute is absent.
	Attribute(name string) (string, error)

	// Text returns the rendered inner text of the element.
	Text() (string, error)
}

// PageDriver is the abstract page-automation surface consumed by the
// scroll loop and session orchestrator.
type PageDriver interface {
	// Navigate loads the URL and returns the HTTP status of the main
	// document (0 when the backend cannot determine it).
	Navigate(ctx context.Context, url string) (int, error)

	// Nodes returns all currently-rendered elements matching the selector.
	Nodes(selector string) ([]Node, error)

	// WaitFor blocks until at least one element matching the selector
	// is present, or the timeout elapses.
	WaitFor(selector string, timeout time.Duration) error

	// Eval runs a JavaScript function in the page and returns its
	// numeric result (0 for functions with no return value). Backends
	// without a script engine return an error.
	Eval(js string) (float64, error)

	// Close releases all backend resources.
	Close() error
}
