// Package checkpoint persists accumulated scrape state so a multi-hour
// run can be interrupted and resumed without loss or duplication. The
// checkpoint file is the resume source of truth; progress snapshots are
// timestamped side artifacts for external inspection only.
package checkpoint

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/use-agent/gleaner/models"
)

const checkpointFile = "checkpoint.json"

// csvColumns is the fixed column order of progress CSV snapshots.
var csvColumns = []string{
	"title", "snippet", "author", "publication", "date",
	"claps", "responses", "url", "extracted_at",
}

// Checkpoint is the durable snapshot written as one atomic artifact:
// the ledger URL set and the record list are never torn apart by a crash.
type Checkpoint struct {
	Timestamp     string                 `json:"timestamp"`
	TotalArticles int                    `json:"total_articles"`
	ScrapedURLs   []string               `json:"scraped_urls"`
	Articles      []models.ArticleRecord `json:"articles"`
}

// Manager owns the output directory and all persistence artifacts of one
// session.
type Manager struct {
	dir   string
	runID string
	now   func() time.Time
}

// NewManager creates the output directory if needed. runID tags the
// per-session progress and summary filenames.
func NewManager(dir, runID string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Manager{dir: dir, runID: runID, now: time.Now}, nil
}

// Save writes the checkpoint as a single atomic artifact: marshal to a
// temp file in the same directory, then rename over the previous one.
// A crash mid-write leaves the old checkpoint intact.
func (m *Manager) Save(records []models.ArticleRecord, urls []string) error {
	cp := Checkpoint{
		Timestamp:     m.now().UTC().Format(time.RFC3339),
		TotalArticles: len(records),
		ScrapedURLs:   urls,
		Articles:      records,
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return models.NewScrapeError(models.ErrCodeCheckpoint, "marshal checkpoint", err)
	}

	final := filepath.Join(m.dir, checkpointFile)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return models.NewScrapeError(models.ErrCodeCheckpoint, "write checkpoint temp file", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return models.NewScrapeError(models.ErrCodeCheckpoint, "publish checkpoint", err)
	}

	slog.Debug("checkpoint saved", "articles", len(records), "path", final)
	return nil
}

// Load reads the last checkpoint. A missing or malformed file is not an
// error: the caller proceeds as if no checkpoint existed.
func (m *Manager) Load() ([]models.ArticleRecord, []string) {
	path := filepath.Join(m.dir, checkpointFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("checkpoint unreadable, starting fresh", "path", path, "error", err)
		} else {
			slog.Info("no checkpoint found, starting fresh", "path", path)
		}
		return nil, nil
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		slog.Warn("checkpoint malformed, starting fresh", "path", path, "error", err)
		return nil, nil
	}

	slog.Info("checkpoint loaded", "articles", len(cp.Articles), "urls", len(cp.ScrapedURLs))
	return cp.Articles, cp.ScrapedURLs
}

// SaveProgress writes timestamped JSON and CSV snapshots of the current
// record list. Snapshots are never overwritten and never used for resume.
func (m *Manager) SaveProgress(records []models.ArticleRecord) error {
	if len(records) == 0 {
		return nil
	}

	stamp := m.now().Format("20060102_150405")
	base := fmt.Sprintf("articles_%s_%s", stamp, m.runID)

	jsonPath := filepath.Join(m.dir, base+".json")
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return models.NewScrapeError(models.ErrCodeCheckpoint, "marshal progress snapshot", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return models.NewScrapeError(models.ErrCodeCheckpoint, "write progress JSON", err)
	}

	csvPath := filepath.Join(m.dir, base+".csv")
	if err := writeCSV(csvPath, records); err != nil {
		return models.NewScrapeError(models.ErrCodeCheckpoint, "write progress CSV", err)
	}

	slog.Info("progress saved", "articles", len(records), "json", jsonPath, "csv", csvPath)
	return nil
}

// WriteSummary writes the plain-text run report and returns its path.
func (m *Manager) WriteSummary(text string) (string, error) {
	path := filepath.Join(m.dir, fmt.Sprintf("summary_%s_%s.txt",
		m.now().Format("20060102_150405"), m.runID))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}

func writeCSV(path string, records []models.ArticleRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvColumns); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.Title, rec.Snippet, rec.Author, rec.Publication, rec.Date,
			strconv.Itoa(rec.Claps), strconv.Itoa(rec.Responses),
			rec.URL, rec.ExtractedAt,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
