package extract

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	nonCountChars = regexp.MustCompile(`[^0-9.KM]`)
	digitRuns     = regexp.MustCompile(`\d+`)

	daysAgoPattern   = regexp.MustCompile(`(\d+)\s*days?\s*ago`)
	weeksAgoPattern  = regexp.MustCompile(`(\d+)\s*weeks?\s*ago`)
	monthsAgoPattern = regexp.MustCompile(`(\d+)\s*months?\s*ago`)
)

// ParseCount parses an engagement count with K/M suffix semantics:
// "1.2K" → 1200, "5M" → 5000000. Anything unparseable yields 0.
func ParseCount(text string) int {
	if text == "" {
		return 0
	}

	clean := nonCountChars.ReplaceAllString(strings.ToUpper(text), "")
	if clean == "" {
		return 0
	}

	multiplier := 1.0
	switch {
	case strings.Contains(clean, "K"):
		multiplier = 1_000
		clean = strings.ReplaceAll(clean, "K", "")
	case strings.Contains(clean, "M"):
		multiplier = 1_000_000
		clean = strings.ReplaceAll(clean, "M", "")
	}

	n, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0
	}
	return int(n * multiplier)
}

// ParseClaps parses the clap count out of the composite text blob the feed
// renders for engagement info: date, claps and responses concatenated by
// line breaks. With exactly 3 non-empty lines the middle one is the clap
// count ("3d ago\n146\n2" → 146). Any other shape falls back to the largest
// numeric substring that is at least 10, since small numbers are more
// likely response counts.
func ParseClaps(text string) int {
	if text == "" {
		return 0
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	if len(lines) == 3 {
		if n, err := strconv.Atoi(lines[1]); err == nil && n >= 0 {
			return n
		}
	}

	best := 0
	for _, match := range digitRuns.FindAllString(text, -1) {
		if n, err := strconv.Atoi(match); err == nil && n >= 10 && n > best {
			best = n
		}
	}
	return best
}

// NormalizeURL resolves a raw link against the site origin. Root-relative
// and protocol-relative forms are joined to the base; absolute URLs pass
// through unchanged.
func NormalizeURL(raw, base string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return baseURL.ResolveReference(ref).String()
}

// CleanText collapses runs of whitespace into single spaces. When maxLen > 0
// and the result is longer than maxLen runes, it is cut at a word boundary
// with "..." appended. The cut never splits a multi-byte rune.
func CleanText(text string, maxLen int) string {
	cleaned := strings.Join(strings.Fields(text), " ")
	if maxLen <= 0 || utf8.RuneCountInString(cleaned) <= maxLen {
		return cleaned
	}

	cut := string([]rune(cleaned)[:maxLen])
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}

// absoluteDateLayouts are tried in order against date strings that are not
// relative forms. "Jan 2" has no year; the current year is filled in.
var absoluteDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	"January 2, 2006",
	"Jan 2, 2006",
	"Jan 2",
	"2006",
}

// NormalizeDate converts the feed's date strings to ISO-8601 where it can:
// relative forms ("3 days ago", "yesterday") and common absolute layouts.
// Unparseable input passes through verbatim.
func NormalizeDate(text string) string {
	return normalizeDateAt(text, time.Now())
}

func normalizeDateAt(text string, now time.Time) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	lower := strings.ToLower(text)
	switch {
	case daysAgoPattern.MatchString(lower):
		n, _ := strconv.Atoi(daysAgoPattern.FindStringSubmatch(lower)[1])
		return now.AddDate(0, 0, -n).Format(time.RFC3339)
	case weeksAgoPattern.MatchString(lower):
		n, _ := strconv.Atoi(weeksAgoPattern.FindStringSubmatch(lower)[1])
		return now.AddDate(0, 0, -7*n).Format(time.RFC3339)
	case monthsAgoPattern.MatchString(lower):
		n, _ := strconv.Atoi(monthsAgoPattern.FindStringSubmatch(lower)[1])
		return now.AddDate(0, 0, -30*n).Format(time.RFC3339)
	case strings.Contains(lower, "yesterday"):
		return now.AddDate(0, 0, -1).Format(time.RFC3339)
	case lower == "today" || lower == "now":
		return now.Format(time.RFC3339)
	}

	for _, layout := range absoluteDateLayouts {
		t, err := time.Parse(layout, text)
		if err != nil {
			continue
		}
		if layout == "Jan 2" {
			t = t.AddDate(now.Year(), 0, 0)
		}
		return t.Format(time.RFC3339)
	}

	return text
}
