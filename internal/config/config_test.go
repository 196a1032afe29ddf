package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("content_dir: docs/content\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	site, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if site.ContentDir != "docs/content" {
		t.Errorf("content_dir = %q, want docs/content", site.ContentDir)
	}
	if site.DefaultLang != "en" {
		t.Errorf("default_lang = %q, want en", site.DefaultLang)
	}
	if site.DefaultBranch != "main" {
		t.Errorf("default_branch = %q, want main", site.DefaultBranch)
	}
	if site.Extension != ".md" {
		t.Errorf("extension = %q, want .md", site.Extension)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
	}{
		{name: "lang with slash", content: "default_lang: en/us\n"},
		{name: "extension without dot", content: "extension: md\n"},
		{name: "not yaml", content: ":\n  - ["},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadOrDefault_NoFile(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	site, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault returned error: %v", err)
	}
	if site.ContentDir != "content" || site.DefaultLang != "en" {
		t.Errorf("unexpected defaults: %+v", site)
	}
}

func TestLoadOrDefault_ExplicitMissingFile(t *testing.T) {
	if _, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestOptionsValidate_HashFormats(t *testing.T) {
	for _, tc := range []struct {
		hash string
		ok   bool
	}{
		{hash: "", ok: true},
		{hash: "abc1234", ok: true},
		{hash: "ABC1234", ok: true},
		{hash: "abc1234def5678abc1234def5678abc1234def56", ok: true},
		{hash: "abc1234+3", ok: true},
		{hash: "head", ok: true},
		{hash: "HEAD", ok: true},
		{hash: "abc123", ok: false},  // too short
		{hash: "xyz1234", ok: false}, // not hex
		{hash: "abc1234+", ok: false},
		{hash: "abc1234 ", ok: false},
	} {
		t.Run("hash="+tc.hash, func(t *testing.T) {
			opts := Options{Mode: ModeDrifted, StampHash: tc.hash}
			err := opts.Validate()
			if tc.ok && err != nil {
				t.Errorf("Validate(%q) = %v, want nil", tc.hash, err)
			}
			if !tc.ok {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("Validate(%q) = %v, want ValidationError", tc.hash, err)
				}
			}
		})
	}
}

func TestOptionsValidate_FlagConflicts(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts Options
		ok   bool
	}{
		{name: "defaults", opts: Options{Mode: ModeDrifted}, ok: true},
		{name: "stamp alone", opts: Options{Mode: ModeAll, StampHash: "abc1234"}, ok: true},
		{name: "stamp and diff", opts: Options{Mode: ModeDrifted, StampHash: "abc1234", ShowDiff: true}, ok: false},
		{name: "stamp and set-drifted", opts: Options{Mode: ModeDrifted, StampHash: "abc1234", SetDrifted: true}, ok: false},
		{name: "diff and set-drifted", opts: Options{Mode: ModeDrifted, ShowDiff: true, SetDrifted: true}, ok: false},
		{name: "quiet and verbose", opts: Options{Mode: ModeDrifted, Quiet: true, Verbose: true}, ok: false},
		{name: "quiet and all", opts: Options{Mode: ModeAll, Quiet: true}, ok: false},
		{name: "quiet alone", opts: Options{Mode: ModeDrifted, Quiet: true}, ok: true},
		{name: "bad mode", opts: Options{Mode: Mode("bogus")}, ok: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.opts.Validate()
			if tc.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tc.ok {
				var uerr *UsageError
				if !errors.As(err, &uerr) {
					t.Errorf("Validate() = %v, want UsageError", err)
				}
			}
		})
	}
}

func TestWantsHead(t *testing.T) {
	if !(&Options{StampHash: "HEAD"}).WantsHead() {
		t.Error("HEAD should resolve to the default branch tip")
	}
	if (&Options{StampHash: "abc1234"}).WantsHead() {
		t.Error("a hex hash is not head")
	}
}
