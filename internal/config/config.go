package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mode selects which files a check run considers
type Mode string

const (
	ModeAll     Mode = "all"
	ModeNew     Mode = "new"
	ModeDrifted Mode = "drifted"
)

// StampHead is the literal stamp argument resolved to the default branch tip.
const StampHead = "head"

// hashPattern matches a hex commit id of 7-40 chars with an optional +N
// suffix counting localization-side commits.
var hashPattern = regexp.MustCompile(`^[0-9a-fA-F]{7,40}(\+[0-9]+)?$`)

// Site represents the site-level localedrift configuration
type Site struct {
	ContentDir    string `yaml:"content_dir"`
	DefaultLang   string `yaml:"default_lang"`
	DefaultBranch string `yaml:"default_branch"`
	Extension     string `yaml:"extension"`
}

// Options carries the parsed, validated command-line flags for a single run.
// It is immutable once built; the engine and classifier only read it.
type Options struct {
	Mode            Mode
	StampHash       string // validated hex hash, "head", or empty for report-only
	SetDrifted      bool
	ShowDiff        bool
	Quiet           bool
	Verbose         bool
	FailOnUntracked bool
	Targets         []string
}

// UsageError reports conflicting or malformed command-line flags
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return e.Msg
}

// ValidationError reports a stamp hash that does not look like a commit id
type ValidationError struct {
	Hash string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid commit hash %q (expected 7-40 hex chars with optional +N suffix, or %q)", e.Hash, StampHead)
}

// Load reads and parses the site configuration file
func Load(path string) (*Site, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var site Site
	if err := yaml.Unmarshal(data, &site); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	site.expandEnv()
	site.applyDefaults()

	if err := site.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &site, nil
}

// LoadOrDefault loads the config file at path, or returns the built-in
// defaults when path is empty and no file exists in the working directory.
func LoadOrDefault(path string) (*Site, error) {
	if path != "" {
		return Load(path)
	}
	const defaultFile = ".localedrift.yaml"
	if _, err := os.Stat(defaultFile); err == nil {
		return Load(defaultFile)
	}
	site := &Site{}
	site.applyDefaults()
	return site, nil
}

// expandEnv expands environment variables in all string fields
func (s *Site) expandEnv() {
	s.ContentDir = os.ExpandEnv(s.ContentDir)
	s.DefaultLang = os.ExpandEnv(s.DefaultLang)
	s.DefaultBranch = os.ExpandEnv(s.DefaultBranch)
	s.Extension = os.ExpandEnv(s.Extension)
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (s *Site) applyDefaults() {
	if s.ContentDir == "" {
		s.ContentDir = "content"
	}
	if s.DefaultLang == "" {
		s.DefaultLang = "en"
	}
	if s.DefaultBranch == "" {
		s.DefaultBranch = "main"
	}
	if s.Extension == "" {
		s.Extension = ".md"
	}
}

// Validate checks the site configuration for errors
func (s *Site) Validate() error {
	if s.DefaultLang == "" {
		return fmt.Errorf("default_lang is required")
	}
	if strings.ContainsAny(s.DefaultLang, "/\\") {
		return fmt.Errorf("default_lang must be a single path segment: %s", s.DefaultLang)
	}
	if s.DefaultBranch == "" {
		return fmt.Errorf("default_branch is required")
	}
	if !strings.HasPrefix(s.Extension, ".") {
		return fmt.Errorf("extension must start with a dot: %s", s.Extension)
	}
	return nil
}

// Validate checks flag combinations and the stamp hash format
func (o *Options) Validate() error {
	switch o.Mode {
	case ModeAll, ModeNew, ModeDrifted:
		// valid
	default:
		return &UsageError{Msg: fmt.Sprintf("unknown mode: %s", o.Mode)}
	}

	// Mutation flags are mutually exclusive
	mutations := 0
	if o.StampHash != "" {
		mutations++
	}
	if o.ShowDiff {
		mutations++
	}
	if o.SetDrifted {
		mutations++
	}
	if mutations > 1 {
		return &UsageError{Msg: "--stamp, --diff and --set-drifted are mutually exclusive"}
	}

	if o.Quiet && o.Verbose {
		return &UsageError{Msg: "--quiet conflicts with --verbose"}
	}
	if o.Quiet && o.Mode == ModeAll {
		return &UsageError{Msg: "--quiet conflicts with --all"}
	}

	if o.StampHash != "" && !strings.EqualFold(o.StampHash, StampHead) {
		if !hashPattern.MatchString(o.StampHash) {
			return &ValidationError{Hash: o.StampHash}
		}
	}

	return nil
}

// WantsHead reports whether the stamp argument asks for the default branch tip.
func (o *Options) WantsHead() bool {
	return strings.EqualFold(o.StampHash, StampHead)
}
