package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the Config fields that make sense to override from a
// YAML file. Pointer fields distinguish "absent" from "zero".
type fileConfig struct {
	ListURL   *string `yaml:"list_url"`
	OutputDir *string `yaml:"output_dir"`
	Resume    *bool   `yaml:"resume"`

	Headless           *bool   `yaml:"headless"`
	NoSandbox          *bool   `yaml:"no_sandbox"`
	Proxy              *string `yaml:"proxy"`
	NavTimeout         *string `yaml:"nav_timeout"`
	ContentTimeout     *string `yaml:"content_timeout"`
	MaxRequestsPerHour *int    `yaml:"max_requests_per_hour"`

	DelayMin          *string `yaml:"delay_min"`
	DelayMax          *string `yaml:"delay_max"`
	MaxEmptyScrolls   *int    `yaml:"max_empty_scrolls"`
	MaxStalledScrolls *int    `yaml:"max_stalled_scrolls"`
	MaxScrollAttempts *int    `yaml:"max_scroll_attempts"`
	KnownScrollFloor  *int    `yaml:"known_scroll_floor"`
	FastScrollStep    *int    `yaml:"fast_scroll_step"`
	SaveInterval      *int    `yaml:"save_interval"`

	MinTitleLen   *int `yaml:"min_title_len"`
	MaxTitleLen   *int `yaml:"max_title_len"`
	MaxSnippetLen *int `yaml:"max_snippet_len"`

	LogLevel  *string `yaml:"log_level"`
	LogFormat *string `yaml:"log_format"`
}

// ApplyFile overlays settings from a YAML file onto the config.
// Only keys present in the file are overridden; env-derived values
// remain for everything else.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.ListURL, fc.ListURL)
	setString(&c.OutputDir, fc.OutputDir)
	setBool(&c.Resume, fc.Resume)

	setBool(&c.Browser.Headless, fc.Headless)
	setBool(&c.Browser.NoSandbox, fc.NoSandbox)
	setString(&c.Browser.Proxy, fc.Proxy)
	if err := setDuration(&c.Nav.NavTimeout, fc.NavTimeout); err != nil {
		return err
	}
	if err := setDuration(&c.Nav.ContentTimeout, fc.ContentTimeout); err != nil {
		return err
	}
	setInt(&c.Nav.MaxRequestsPerHour, fc.MaxRequestsPerHour)

	if err := setDuration(&c.Scroll.DelayMin, fc.DelayMin); err != nil {
		return err
	}
	if err := setDuration(&c.Scroll.DelayMax, fc.DelayMax); err != nil {
		return err
	}
	setInt(&c.Scroll.MaxEmpty, fc.MaxEmptyScrolls)
	setInt(&c.Scroll.MaxStalled, fc.MaxStalledScrolls)
	setInt(&c.Scroll.MaxAttempts, fc.MaxScrollAttempts)
	setInt(&c.Scroll.KnownFloor, fc.KnownScrollFloor)
	setInt(&c.Scroll.FastScrollStep, fc.FastScrollStep)
	setInt(&c.Scroll.SaveInterval, fc.SaveInterval)

	setInt(&c.Extract.MinTitleLen, fc.MinTitleLen)
	setInt(&c.Extract.MaxTitleLen, fc.MaxTitleLen)
	setInt(&c.Extract.MaxSnippetLen, fc.MaxSnippetLen)

	setString(&c.Log.Level, fc.LogLevel)
	setString(&c.Log.Format, fc.LogFormat)

	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", *src, err)
	}
	*dst = d
	return nil
}
