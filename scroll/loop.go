// Package scroll drives the virtualized feed until one of four stop
// conditions fires. A naive "scroll until nothing new" loop stops too
// early on feeds that re-render already-seen items between growth bursts,
// so the loop keeps three independent counters: consecutive iterations
// with no DOM growth, with nothing recognizable at all, and with only
// already-known content. Each maps to a distinct stop reason the summary
// relies on to diagnose incomplete runs.
package scroll

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/use-agent/gleaner/config"
	"github.com/use-agent/gleaner/driver"
	"github.com/use-agent/gleaner/extract"
	"github.com/use-agent/gleaner/ledger"
	"github.com/use-agent/gleaner/models"
)

// StopReason identifies which terminating predicate ended the loop.
type StopReason int

const (
	StopNone StopReason = iota

	// StopEndOfFeed: the DOM node count stalled long enough to call the
	// feed definitively exhausted. The strongest end signal.
	StopEndOfFeed

	// StopNoContent: nothing recognizable rendered for too many
	// iterations; likely a load stall or broken extraction.
	StopNoContent

	// StopScrollBudget: the dynamic all-known budget ran out while
	// traversing repeats. The run may be incomplete.
	StopScrollBudget

	// StopMaxAttempts: absolute scroll-attempt safety ceiling.
	StopMaxAttempts

	// StopCanceled: the context was canceled mid-run; accumulated state
	// was still flushed.
	StopCanceled
)

func (r StopReason) String() string {
	switch r {
	case StopEndOfFeed:
		return "end of feed"
	case StopNoContent:
		return "no extractable content"
	case StopScrollBudget:
		return "scroll budget exhausted"
	case StopMaxAttempts:
		return "max scroll attempts reached"
	case StopCanceled:
		return "canceled"
	default:
		return "none"
	}
}

// Sink receives persistence triggers from the loop.
type Sink interface {
	Save(records []models.ArticleRecord, urls []string) error
	SaveProgress(records []models.ArticleRecord) error
}

// Outcome summarizes one loop run.
type Outcome struct {
	Reason          StopReason
	NewRecords      int
	Attempts        int
	MayBeIncomplete bool
}

// Loop is the scroll-extraction engine. It borrows the ledger and record
// list from the orchestrator; it never owns them.
type Loop struct {
	drv  driver.PageDriver
	ex   *extract.Extractor
	led  *ledger.Ledger
	sink Sink
	cfg  config.ScrollConfig
}

// New builds a Loop. Zero thresholds in cfg fall back to safe defaults so
// a partially-filled config still terminates.
func New(drv driver.PageDriver, ex *extract.Extractor, led *ledger.Ledger, sink Sink, cfg config.ScrollConfig) *Loop {
	if cfg.MaxEmpty <= 0 {
		cfg.MaxEmpty = 5
	}
	if cfg.MaxStalled <= 0 {
		cfg.MaxStalled = 10
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5000
	}
	if cfg.KnownFloor <= 0 {
		cfg.KnownFloor = 200
	}
	if cfg.KnownDivisor <= 0 {
		cfg.KnownDivisor = 15
	}
	if cfg.KnownOffset < 0 {
		cfg.KnownOffset = 100
	}
	if cfg.FastScrollStep <= 0 {
		cfg.FastScrollStep = 2000
	}
	return &Loop{drv: drv, ex: ex, led: led, sink: sink, cfg: cfg}
}

// progress holds the per-run counters. Reset at loop entry, never persisted.
type progress struct {
	empty     int // consecutive iterations with nothing recognizable
	allKnown  int // consecutive iterations with only known content
	stalled   int // consecutive iterations with no DOM node-count growth
	attempts  int // total scroll actions performed
	lastCount int // node count baseline for the stall detector
}

// Run drives the feed until a stop condition fires. New records are
// appended to *records as they are merged. On every exit path, including
// cancellation, the accumulated state is flushed to the sink before
// returning.
func (l *Loop) Run(ctx context.Context, records *[]models.ArticleRecord) Outcome {
	// Larger pre-existing result sets need proportionally more tolerance
	// for scrolling past already-seen content before reaching the
	// frontier of new items.
	existing := len(*records)
	knownBudget := max(l.cfg.KnownFloor, existing/l.cfg.KnownDivisor+l.cfg.KnownOffset)
	slog.Info("scroll loop starting",
		"existingRecords", existing,
		"knownBudget", knownBudget,
		"maxEmpty", l.cfg.MaxEmpty,
		"maxStalled", l.cfg.MaxStalled,
		"maxAttempts", l.cfg.MaxAttempts,
	)

	var st progress
	startCount := existing

	outcome := func(reason StopReason) Outcome {
		l.flush(*records)
		return Outcome{
			Reason:          reason,
			NewRecords:      len(*records) - startCount,
			Attempts:        st.attempts,
			MayBeIncomplete: reason == StopScrollBudget || reason == StopMaxAttempts || reason == StopCanceled,
		}
	}

	for {
		if ctx.Err() != nil {
			return outcome(StopCanceled)
		}

		nodes, err := l.drv.Nodes(l.ex.Container())
		if err != nil {
			slog.Warn("node snapshot failed", "error", err)
			nodes = nil
		}

		fresh, known, failed := l.harvest(nodes)
		*records = append(*records, fresh...)

		// Stall detector: the feed has stopped delivering any new DOM
		// nodes when the rendered count freezes across iterations.
		if len(nodes) == st.lastCount {
			st.stalled++
		} else {
			st.stalled = 0
			st.lastCount = len(nodes)
		}

		switch {
		case len(fresh) > 0:
			st.empty = 0
			st.allKnown = 0
		case known > 0:
			// Recognizable content, just nothing new. The feed may
			// resume producing new items after a run of repeats.
			st.allKnown++
			st.empty = 0
		default:
			st.empty++
			st.allKnown = 0
		}

		slog.Info("scroll iteration",
			"attempt", st.attempts+1,
			"nodes", len(nodes),
			"new", len(fresh),
			"known", known,
			"failed", failed,
			"total", len(*records),
			"stalled", st.stalled,
			"allKnown", st.allKnown,
			"empty", st.empty,
		)

		if len(fresh) > 0 {
			if err := l.sink.Save(*records, l.led.URLs()); err != nil {
				// Accept the risk of losing the latest progress on a
				// crash rather than aborting the whole session.
				slog.Error("checkpoint save failed, continuing", "error", err)
			}
		}
		// Gated on fresh so a run of known-only iterations at an exact
		// interval multiple does not rewrite the same snapshot every pass.
		if len(fresh) > 0 && l.cfg.SaveInterval > 0 && len(*records)%l.cfg.SaveInterval == 0 {
			if err := l.sink.SaveProgress(*records); err != nil {
				slog.Error("progress save failed, continuing", "error", err)
			}
		}

		// Stop conditions, strongest signal first.
		switch {
		case st.stalled >= l.cfg.MaxStalled:
			slog.Info("reached actual end of feed",
				"stalledIterations", st.stalled)
			return outcome(StopEndOfFeed)
		case st.empty >= l.cfg.MaxEmpty:
			slog.Warn("no extractable content, stopping",
				"emptyIterations", st.empty)
			return outcome(StopNoContent)
		case st.allKnown >= knownBudget:
			slog.Warn("scroll budget exhausted on known content; run may be incomplete",
				"knownIterations", st.allKnown, "budget", knownBudget)
			return outcome(StopScrollBudget)
		case st.attempts >= l.cfg.MaxAttempts:
			slog.Warn("scroll attempt ceiling reached", "attempts", st.attempts)
			return outcome(StopMaxAttempts)
		}

		st.attempts++
		if known > 0 && len(fresh) == 0 {
			// Dead zone of already-seen items: jump ahead faster.
			l.fastScroll()
		} else {
			l.normalScroll()
		}

		if err := l.settle(ctx); err != nil {
			return outcome(StopCanceled)
		}
		if err := l.probeGrowth(ctx); err != nil {
			return outcome(StopCanceled)
		}
	}
}

// harvest classifies every rendered node and extracts the new ones.
// A node whose URL probes as already known skips full extraction entirely.
func (l *Loop) harvest(nodes []driver.Node) (fresh []models.ArticleRecord, known, failed int) {
	var batch []models.ArticleRecord
	for _, n := range nodes {
		if u := l.ex.ProbeURL(n); u != "" && l.led.Known(u) {
			known++
			continue
		}
		rec, err := l.ex.Extract(n)
		if err != nil {
			failed++
			slog.Debug("node extraction failed", "error", err)
			continue
		}
		batch = append(batch, rec)
	}
	return l.led.Merge(batch), known, failed
}

// flush performs the best-effort final persistence write owed on every
// exit path.
func (l *Loop) flush(records []models.ArticleRecord) {
	if err := l.sink.Save(records, l.led.URLs()); err != nil {
		slog.Error("final checkpoint save failed", "error", err)
	}
}

func (l *Loop) normalScroll() {
	if _, err := l.drv.Eval(`() => { window.scrollTo(0, document.body.scrollHeight); return 0; }`); err != nil {
		slog.Debug("scroll action failed", "error", err)
	}
}

func (l *Loop) fastScroll() {
	pos, err := l.drv.Eval(`() => window.pageYOffset`)
	if err != nil {
		slog.Debug("fast scroll position probe failed", "error", err)
		l.normalScroll()
		return
	}
	js := fmt.Sprintf(`() => { window.scrollTo(0, %d); return 0; }`, int(pos)+l.cfg.FastScrollStep)
	if _, err := l.drv.Eval(js); err != nil {
		slog.Debug("fast scroll action failed", "error", err)
	}
}

// settle sleeps a randomized delay inside the configured window so the
// scroll cadence does not look mechanical.
func (l *Loop) settle(ctx context.Context) error {
	d := l.cfg.DelayMin
	if span := l.cfg.DelayMax - l.cfg.DelayMin; span > 0 {
		d += time.Duration(rand.Int64N(int64(span)))
	}
	return sleepCtx(ctx, d)
}

// probeGrowth samples the page height across a short wait and logs whether
// scroll-triggered loading delivered anything.
func (l *Loop) probeGrowth(ctx context.Context) error {
	before, err := l.drv.Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return nil
	}
	if err := sleepCtx(ctx, l.cfg.DelayMin); err != nil {
		return err
	}
	after, evalErr := l.drv.Eval(`() => document.body.scrollHeight`)
	if evalErr != nil {
		return nil
	}
	if after > before {
		slog.Debug("content loaded", "before", before, "after", after)
	} else {
		slog.Debug("no new content detected after scroll")
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
