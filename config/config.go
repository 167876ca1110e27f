package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	ListURL   string
	OutputDir string
	Resume    bool
	Browser   BrowserConfig
	Nav       NavConfig
	Scroll    ScrollConfig
	Extract   ExtractConfig
	Log       LogConfig
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the proxy URL for all requests.
	Proxy string

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string
}

// NavConfig controls navigation behavior and outbound request pacing.
type NavConfig struct {
	// NavTimeout is the max time for the initial navigation.
	NavTimeout time.Duration // default: 30s

	// ContentTimeout is the max time to wait for the first article
	// element to render after navigation.
	ContentTimeout time.Duration // default: 15s

	// MaxRequestsPerHour feeds the outbound token-bucket limiter.
	MaxRequestsPerHour int // default: 400
}

// ScrollConfig controls the scroll-extraction loop. Every stop-condition
// threshold is tunable here rather than hardcoded in the loop.
type ScrollConfig struct {
	// DelayMin/DelayMax bound the randomized settle delay after a scroll.
	DelayMin time.Duration // default: 1.5s
	DelayMax time.Duration // default: 2.5s

	// MaxEmpty stops the loop after N consecutive iterations where
	// nothing recognizable rendered at all.
	MaxEmpty int // default: 5

	// MaxStalled stops the loop after N consecutive iterations with no
	// DOM node-count growth (the definitive end-of-feed signal).
	MaxStalled int // default: 10

	// MaxAttempts is the absolute scroll-attempt safety ceiling.
	MaxAttempts int // default: 5000

	// KnownFloor/KnownDivisor/KnownOffset shape the dynamic all-known
	// threshold: max(KnownFloor, existing/KnownDivisor + KnownOffset).
	KnownFloor   int // default: 200
	KnownDivisor int // default: 15
	KnownOffset  int // default: 100

	// FastScrollStep is the pixel jump used when traversing regions of
	// already-known content.
	FastScrollStep int // default: 2000

	// SaveInterval is the number of accumulated records between
	// progress snapshots.
	SaveInterval int // default: 50

	// CheckpointInterval is advisory; the actual checkpoint trigger is
	// record-count based.
	CheckpointInterval time.Duration // default: 5m
}

// ExtractConfig controls field extraction and validation bounds.
type ExtractConfig struct {
	// BaseURL is the fixed site origin relative links resolve against.
	BaseURL string // default: "https://medium.com"

	MinTitleLen   int // default: 5
	MaxTitleLen   int // default: 500
	MaxSnippetLen int // default: 1000
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		ListURL:   envOr("GLEANER_LIST_URL", "https://medium.com/@username/list/your-list-id"),
		OutputDir: envOr("GLEANER_OUTPUT_DIR", "output"),
		Resume:    envBoolOr("GLEANER_RESUME", true),
		Browser: BrowserConfig{
			Headless:   envBoolOr("GLEANER_HEADLESS", true),
			NoSandbox:  envBoolOr("GLEANER_NO_SANDBOX", false),
			BrowserBin: os.Getenv("GLEANER_BROWSER_BIN"),
			Proxy:      os.Getenv("GLEANER_PROXY"),
			BlockedResourceTypes: envSliceOr("GLEANER_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
		},
		Nav: NavConfig{
			NavTimeout:         envDurationOr("GLEANER_NAV_TIMEOUT", 30*time.Second),
			ContentTimeout:     envDurationOr("GLEANER_CONTENT_TIMEOUT", 15*time.Second),
			MaxRequestsPerHour: envIntOr("GLEANER_MAX_REQUESTS_PER_HOUR", 400),
		},
		Scroll: ScrollConfig{
			DelayMin:           envDurationOr("GLEANER_DELAY_MIN", 1500*time.Millisecond),
			DelayMax:           envDurationOr("GLEANER_DELAY_MAX", 2500*time.Millisecond),
			MaxEmpty:           envIntOr("GLEANER_MAX_EMPTY_SCROLLS", 5),
			MaxStalled:         envIntOr("GLEANER_MAX_STALLED_SCROLLS", 10),
			MaxAttempts:        envIntOr("GLEANER_MAX_SCROLL_ATTEMPTS", 5000),
			KnownFloor:         envIntOr("GLEANER_KNOWN_SCROLL_FLOOR", 200),
			KnownDivisor:       envIntOr("GLEANER_KNOWN_SCROLL_DIVISOR", 15),
			KnownOffset:        envIntOr("GLEANER_KNOWN_SCROLL_OFFSET", 100),
			FastScrollStep:     envIntOr("GLEANER_FAST_SCROLL_STEP", 2000),
			SaveInterval:       envIntOr("GLEANER_SAVE_INTERVAL", 50),
			CheckpointInterval: envDurationOr("GLEANER_CHECKPOINT_INTERVAL", 5*time.Minute),
		},
		Extract: ExtractConfig{
			BaseURL:       envOr("GLEANER_BASE_URL", "https://medium.com"),
			MinTitleLen:   envIntOr("GLEANER_MIN_TITLE_LEN", 5),
			MaxTitleLen:   envIntOr("GLEANER_MAX_TITLE_LEN", 500),
			MaxSnippetLen: envIntOr("GLEANER_MAX_SNIPPET_LEN", 1000),
		},
		Log: LogConfig{
			Level:  envOr("GLEANER_LOG_LEVEL", "info"),
			Format: envOr("GLEANER_LOG_FORMAT", "text"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
