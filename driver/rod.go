package driver

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/gleaner/config"
	"github.com/use-agent/gleaner/models"
	"github.com/ysmood/gson"
)

// Rod is the Chromium-backed page driver. It owns one browser process and
// one page for the lifetime of a session.
type Rod struct {
	browser *rod.Browser
	page    *rod.Page
	router  *rod.HijackRouter
}

// NewRod launches a headless browser and prepares a single page with
// stealth JS and resource blocking installed. Both must be in place
// before the first navigation to take effect.
func NewRod(cfg config.BrowserConfig) (*Rod, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to create page",
			err,
		)
	}

	if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
		slog.Warn("stealth injection failed, proceeding without stealth",
			"error", evalErr,
		)
	}

	router := setupHijack(page, cfg.BlockedResourceTypes)

	return &Rod{browser: browser, page: page, router: router}, nil
}

// Navigate loads the URL, waits for the DOM to settle, and reads the
// main-document status from the navigation performance entry (no CDP
// event listeners needed).
func (d *Rod) Navigate(ctx context.Context, target string) (int, error) {
	p := d.page.Context(ctx)

	setExtraHeaders(p, target)

	if err := p.Navigate(target); err != nil {
		return 0, categorizeNavError(err)
	}

	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", stableErr,
		)
	}

	status := 0
	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		status = res.Value.Int()
	}
	return status, nil
}

// Nodes snapshots all currently-rendered elements matching the selector.
func (d *Rod) Nodes(selector string) ([]Node, error) {
	els, err := d.page.Elements(selector)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(els))
	for _, el := range els {
		nodes = append(nodes, rodNode{el: el})
	}
	return nodes, nil
}

// WaitFor blocks until the selector matches at least one element.
func (d *Rod) WaitFor(selector string, timeout time.Duration) error {
	return d.page.Timeout(timeout).WaitElementsMoreThan(selector, 0)
}

// Eval runs a JS function and returns its numeric result.
func (d *Rod) Eval(js string) (float64, error) {
	res, err := d.page.Eval(js)
	if err != nil {
		return 0, err
	}
	return res.Value.Num(), nil
}

// Close stops the hijack router and kills the browser process.
func (d *Rod) Close() error {
	if d.router != nil {
		_ = d.router.Stop()
	}
	if err := d.page.Close(); err != nil {
		slog.Warn("page close failed", "error", err)
	}
	return d.browser.Close()
}

type rodNode struct {
	el *rod.Element
}

func (n rodNode) Query(selector string) (Node, error) {
	els, err := n.el.Elements(selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, nil
	}
	return rodNode{el: els.First()}, nil
}

func (n rodNode) Attribute(name string) (string, error) {
	v, err := n.el.Attribute(name)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

func (n rodNode) Text() (string, error) {
	return n.el.Text()
}

// setExtraHeaders installs a plausible Referer and Accept-Language on the
// page so the feed serves the same markup it would to a person.
func setExtraHeaders(p *rod.Page, target string) {
	headers := map[string]string{
		"Accept-Language": "en-US,en;q=0.9",
	}
	if u, parseErr := url.Parse(target); parseErr == nil {
		headers["Referer"] = "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())
	}
	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(headers),
	}.Call(p)
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

func categorizeNavError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, "navigation timed out", err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "navigation canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, "navigation to target URL failed", err)
	}
}
