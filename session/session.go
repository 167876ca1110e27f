// Package session wires the driver, extractor, ledger, scroll loop and
// checkpoint manager into one run. It owns the page-driver lifecycle and
// guarantees a final persistence write on every exit path, including
// interruption. There is one writer and one reader of all shared state,
// never accessed concurrently.
package session

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/use-agent/gleaner/checkpoint"
	"github.com/use-agent/gleaner/config"
	"github.com/use-agent/gleaner/driver"
	"github.com/use-agent/gleaner/extract"
	"github.com/use-agent/gleaner/ledger"
	"github.com/use-agent/gleaner/models"
	"github.com/use-agent/gleaner/scroll"
)

// Session orchestrates one scraping run. The ledger and record list live
// here and are lent to the scroll loop, never reachable as global state.
type Session struct {
	cfg     *config.Config
	drv     driver.PageDriver
	mgr     *checkpoint.Manager
	limiter *rate.Limiter

	records []models.ArticleRecord
	led     *ledger.Ledger
}

// New builds a Session around an already-constructed driver and
// checkpoint manager. The navigation limiter is a token bucket sized to
// the configured requests-per-hour budget.
func New(cfg *config.Config, drv driver.PageDriver, mgr *checkpoint.Manager) *Session {
	perHour := cfg.Nav.MaxRequestsPerHour
	if perHour <= 0 {
		perHour = 400
	}
	return &Session{
		cfg:     cfg,
		drv:     drv,
		mgr:     mgr,
		limiter: rate.NewLimiter(rate.Every(time.Hour/time.Duration(perHour)), perHour),
		led:     ledger.New(),
	}
}

// Run executes the full session: resume from checkpoint, navigate, scroll
// until a stop condition fires, persist, summarize. The driver is released
// and a final persistence write is attempted on every exit path.
func (s *Session) Run(ctx context.Context) (summary *Summary, err error) {
	start := time.Now()

	if s.cfg.Resume {
		records, urls := s.mgr.Load()
		s.records = records
		s.led.Seed(urls, records)
		if len(records) > 0 {
			slog.Info("resuming from checkpoint",
				"articles", len(records),
				"lastTitle", truncate(records[len(records)-1].Title, 60),
			)
		}
	}
	initialCount := len(s.records)

	sel := extract.DefaultSelectors()
	if validateErr := sel.Validate(); validateErr != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "selector validation failed", validateErr)
	}
	ex := extract.New(sel, s.cfg.Extract)

	// The final flush is the one hard transactional requirement: no exit
	// path leaves without attempting to persist accumulated state.
	defer func() {
		if flushErr := s.mgr.Save(s.records, s.led.URLs()); flushErr != nil {
			slog.Error("final checkpoint write failed", "error", flushErr)
		}
		if progErr := s.mgr.SaveProgress(s.records); progErr != nil {
			slog.Error("final progress write failed", "error", progErr)
		}
		if closeErr := s.drv.Close(); closeErr != nil {
			slog.Warn("driver close failed", "error", closeErr)
		}
	}()

	if navErr := s.navigate(ctx, ex); navErr != nil {
		// Checkpoint state already on disk remains valid for a future
		// resume; no automatic retry within the session.
		return nil, navErr
	}

	loop := scroll.New(s.drv, ex, s.led, s.mgr, s.cfg.Scroll)
	outcome := loop.Run(ctx, &s.records)

	slog.Info("scroll extraction completed",
		"reason", outcome.Reason.String(),
		"newRecords", outcome.NewRecords,
		"attempts", outcome.Attempts,
		"total", len(s.records),
	)

	summary = BuildSummary(s.records, len(s.records)-initialCount, time.Since(start))
	summary.StopReason = outcome.Reason.String()
	summary.MayBeIncomplete = outcome.MayBeIncomplete

	if path, sumErr := s.mgr.WriteSummary(summary.Render()); sumErr != nil {
		slog.Error("summary write failed", "error", sumErr)
	} else {
		slog.Info("summary written", "path", path)
	}

	return summary, nil
}

// navigate performs the rate-limited initial navigation and waits for the
// first article card to render.
func (s *Session) navigate(ctx context.Context, ex *extract.Extractor) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return models.NewScrapeError(models.ErrCodeNavigation, "rate limiter interrupted", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, s.cfg.Nav.NavTimeout)
	defer cancel()

	slog.Info("navigating to list", "url", s.cfg.ListURL)
	status, err := s.drv.Navigate(navCtx, s.cfg.ListURL)
	if err != nil {
		return err
	}
	if status != 0 && status != 200 {
		return models.NewScrapeError(
			models.ErrCodeNavigation,
			"target returned non-200 status",
			nil,
		)
	}

	if err := s.drv.WaitFor(ex.Container(), s.cfg.Nav.ContentTimeout); err != nil {
		return models.NewScrapeError(
			models.ErrCodeNavigation,
			"no article content rendered after navigation",
			err,
		)
	}

	slog.Info("navigation complete", "status", status)
	return nil
}
