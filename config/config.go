// Package config aggregates the editing tunables and loads them from YAML.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the edit pipeline.
type Config struct {
	Layout  Layout  `yaml:"layout"`
	Match   Match   `yaml:"match"`
	Reflow  Reflow  `yaml:"reflow"`
	Write   Write   `yaml:"write"`
	Index   Index   `yaml:"index"`
	Logging Logging `yaml:"logging"`
}

type Layout struct {
	Margin        float64 `yaml:"margin"`
	RightSlack    float64 `yaml:"right_slack"`
	LineHeight    float64 `yaml:"line_height"`
	MinShrink     float64 `yaml:"min_shrink"`
	VerticalFloor float64 `yaml:"vertical_floor"`
	SearchSteps   int     `yaml:"search_steps"`
	SearchGranule float64 `yaml:"search_granule"`
	DefaultFont   string  `yaml:"default_font"`
	DefaultSize   float64 `yaml:"default_size"`
}

type Match struct {
	Threshold      float64 `yaml:"threshold"`
	VerifyMin      float64 `yaml:"verify_min"`
	MaxLengthRatio float64 `yaml:"max_length_ratio"`
}

type Reflow struct {
	Gap     float64 `yaml:"gap"`
	Epsilon float64 `yaml:"epsilon"`
}

type Write struct {
	Compress bool `yaml:"compress"`
}

type Index struct {
	Workers int `yaml:"workers"`
}

type Logging struct {
	Level string `yaml:"level"`
}

func Default() Config {
	return Config{
		Layout: Layout{
			Margin:        36,
			RightSlack:    24,
			LineHeight:    1.2,
			MinShrink:     0.5,
			VerticalFloor: 0.05,
			SearchSteps:   7,
			SearchGranule: 2,
			DefaultFont:   "Helvetica",
			DefaultSize:   12,
		},
		Match:   Match{Threshold: 0.5, VerifyMin: 0.80, MaxLengthRatio: 3},
		Reflow:  Reflow{Gap: 2, Epsilon: 1},
		Write:   Write{Compress: true},
		Index:   Index{Workers: 4},
		Logging: Logging{Level: "info"},
	}
}

// Validate reports every out-of-range tunable.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(c.Layout.Margin >= 0, "layout.margin must be >= 0, got %v", c.Layout.Margin)
	check(c.Layout.RightSlack >= 0, "layout.right_slack must be >= 0, got %v", c.Layout.RightSlack)
	check(c.Layout.LineHeight >= 1, "layout.line_height must be >= 1, got %v", c.Layout.LineHeight)
	check(c.Layout.MinShrink > 0 && c.Layout.MinShrink <= 1, "layout.min_shrink must be in (0,1], got %v", c.Layout.MinShrink)
	check(c.Layout.VerticalFloor > 0 && c.Layout.VerticalFloor <= c.Layout.MinShrink, "layout.vertical_floor must be in (0,min_shrink], got %v", c.Layout.VerticalFloor)
	check(c.Layout.SearchSteps > 0, "layout.search_steps must be > 0, got %d", c.Layout.SearchSteps)
	check(c.Layout.SearchGranule > 0, "layout.search_granule must be > 0, got %v", c.Layout.SearchGranule)
	check(c.Layout.DefaultFont != "", "layout.default_font must be set")
	check(c.Layout.DefaultSize > 0, "layout.default_size must be > 0, got %v", c.Layout.DefaultSize)
	check(c.Match.Threshold > 0 && c.Match.Threshold < 1, "match.threshold must be in (0,1), got %v", c.Match.Threshold)
	check(c.Match.VerifyMin > 0 && c.Match.VerifyMin <= 1, "match.verify_min must be in (0,1], got %v", c.Match.VerifyMin)
	check(c.Match.MaxLengthRatio >= 1, "match.max_length_ratio must be >= 1, got %v", c.Match.MaxLengthRatio)
	check(c.Reflow.Gap >= 0, "reflow.gap must be >= 0, got %v", c.Reflow.Gap)
	check(c.Reflow.Epsilon >= 0, "reflow.epsilon must be >= 0, got %v", c.Reflow.Epsilon)
	check(c.Index.Workers > 0, "index.workers must be > 0, got %d", c.Index.Workers)
	return errors.Join(errs...)
}

// Parse overlays YAML data onto the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads a YAML file. An empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}
