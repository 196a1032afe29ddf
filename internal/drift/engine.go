package drift

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/localedrift/localedrift/internal/config"
	"github.com/localedrift/localedrift/internal/frontmatter"
	"github.com/localedrift/localedrift/internal/gitcmd"
)

// Engine orchestrates a check run: resolves targets, classifies each file
// sequentially and persists any mutations.
type Engine struct {
	site   *config.Site
	opts   config.Options
	git    gitcmd.Runner
	logger *slog.Logger
}

// NewEngine creates a new check engine
func NewEngine(site *config.Site, opts config.Options, git gitcmd.Runner, logger *slog.Logger) *Engine {
	return &Engine{site: site, opts: opts, git: git, logger: logger}
}

// Run executes the complete check and returns the aggregated summary. A
// non-nil error aborts the run; metadata already written stays written.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	stamp := e.opts.StampHash
	if e.opts.WantsHead() {
		resolved, err := e.git.Resolve(ctx, e.site.DefaultBranch)
		if err != nil {
			return nil, err
		}
		stamp = resolved
		e.logger.Debug("resolved stamp target", "ref", e.site.DefaultBranch, "commit", stamp)
	}

	targets, err := e.resolveTargets()
	if err != nil {
		return nil, err
	}
	e.logger.Info("starting check",
		"mode", string(e.opts.Mode),
		"targets", len(targets),
		"stamp", stamp != "")

	classifier := NewClassifier(e.site, e.opts, e.git, stamp)
	summary := newSummary()

	for _, path := range targets {
		result, err := e.processFile(ctx, classifier, path)
		if err != nil {
			return summary, err
		}
		summary.add(result, e.processed(result))
		e.report(result)
	}

	summary.ExitCode = e.exitCode(summary)
	e.logger.Info("check complete",
		"total", summary.Total,
		"processed", summary.Processed,
		"drifted", summary.ByClass[ClassDrifted],
		"new", summary.ByClass[ClassNew],
		"orphaned", summary.ByClass[ClassOrphaned],
		"errors", summary.ByClass[ClassDiffError])
	return summary, nil
}

func (e *Engine) processFile(ctx context.Context, classifier *Classifier, path string) (Result, error) {
	blk, err := frontmatter.Load(path)
	if err != nil {
		return Result{Path: path}, err
	}

	lang, counterpart, err := e.counterpart(path)
	if err != nil {
		return Result{Path: path}, err
	}

	result, err := classifier.Classify(ctx, blk, counterpart)
	result.Language = lang
	if err != nil {
		return result, err
	}

	if blk.Dirty() {
		if err := blk.Write(); err != nil {
			return result, err
		}
	}
	return result, nil
}

// processed reports whether a result counts against the active mode's
// filter. In-sync files only count when every file was asked for.
func (e *Engine) processed(r Result) bool {
	switch r.Class {
	case ClassSkipped:
		return false
	case ClassInSync:
		return e.opts.Mode == config.ModeAll
	default:
		return true
	}
}

func (e *Engine) exitCode(s *Summary) int {
	if s.worstDiffStatus > 1 {
		return s.worstDiffStatus
	}
	if e.opts.FailOnUntracked && s.Processed > 0 && e.opts.StampHash == "" {
		return 1
	}
	return 0
}

func (e *Engine) report(r Result) {
	switch r.Class {
	case ClassSkipped:
		e.logger.Debug("skipped", "path", r.Path)
	case ClassInSync:
		e.logger.Debug("in sync", "path", r.Path, "lang", r.Language)
	case ClassStamped:
		e.logger.Info("stamped", "path", r.Path, "lang", r.Language)
	case ClassNew:
		e.logger.Info(messageNew, "path", r.Path, "lang", r.Language, "stamped", r.Stamped)
	case ClassDrifted:
		e.logger.Info("drifted", "path", r.Path, "lang", r.Language, "stamped", r.Stamped)
		if e.opts.ShowDiff && r.Message != "" {
			fmt.Println(r.Message)
		}
	case ClassOrphaned:
		e.logger.Warn("orphaned", "path", r.Path, "lang", r.Language, "detail", r.Message)
	case ClassDiffError:
		e.logger.Error("diff failed", "path", r.Path, "status", r.DiffStatus, "detail", r.Message)
	}
}

// resolveTargets expands the positional arguments into the concrete file
// list. A file argument is taken as-is; a directory is walked recursively
// for tracked files, skipping the default-language subtree.
func (e *Engine) resolveTargets() ([]string, error) {
	args := e.opts.Targets
	if len(args) == 0 {
		args = []string{e.site.ContentDir}
	}

	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, &TargetNotFoundError{Path: arg}
			}
			return nil, err
		}

		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		found, err := e.walkDir(arg)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, &NoTargetsError{Dir: arg}
		}
		files = append(files, found...)
	}
	return files, nil
}

func (e *Engine) walkDir(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == e.site.DefaultLang {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == e.site.Extension {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// counterpart derives the default-language path for a localized file by
// swapping the language segment, the first path component under the content
// directory.
func (e *Engine) counterpart(path string) (lang, counterpartPath string, err error) {
	rel, err := filepath.Rel(e.site.ContentDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", "", &config.UsageError{Msg: fmt.Sprintf("target %s is not under content dir %s", path, e.site.ContentDir)}
	}

	segs := strings.Split(filepath.ToSlash(rel), "/")
	if len(segs) < 2 {
		return "", "", &config.UsageError{Msg: fmt.Sprintf("cannot determine language of %s", path)}
	}
	lang = segs[0]
	if lang == e.site.DefaultLang {
		return "", "", &config.UsageError{Msg: fmt.Sprintf("%s is a default-language file", path)}
	}

	counterpartPath = filepath.Join(e.site.ContentDir, e.site.DefaultLang, filepath.Join(segs[1:]...))
	return lang, counterpartPath, nil
}
