package drift

import (
	"context"
	"os"

	"github.com/localedrift/localedrift/internal/config"
	"github.com/localedrift/localedrift/internal/frontmatter"
	"github.com/localedrift/localedrift/internal/gitcmd"
)

// messageNew is the report line for a translation without a baseline.
const messageNew = "New i18n file"

// Classifier decides the drift state of a single tracked file and applies
// the requested front-matter mutations in memory. Persisting a mutated
// block is the engine's job.
type Classifier struct {
	site  *config.Site
	opts  config.Options
	git   gitcmd.Runner
	stamp string // stamp hash with "head" already resolved; empty = report only
}

// NewClassifier creates a classifier. stamp must be the concrete stamp hash
// for this run, or empty when no stamping was requested.
func NewClassifier(site *config.Site, opts config.Options, git gitcmd.Runner, stamp string) *Classifier {
	return &Classifier{site: site, opts: opts, git: git, stamp: stamp}
}

// Classify runs the per-file state machine. counterpart is the derived
// default-language path. Errors returned here are fatal to the whole run;
// recoverable git diff failures come back as ClassDiffError results instead.
func (c *Classifier) Classify(ctx context.Context, blk *frontmatter.Block, counterpart string) (Result, error) {
	r := Result{Path: blk.Path()}

	// Bulk re-baselining: stamp unconditionally, skip all diffing.
	if c.opts.Mode == config.ModeAll && c.stamp != "" {
		blk.SetSyncCommit(c.stamp)
		r.Class = ClassStamped
		r.Stamped = true
		return r, nil
	}

	syncCommit, hasSync := blk.SyncCommit()

	if c.opts.Mode == config.ModeNew {
		if hasSync {
			r.Class = ClassSkipped
			return r, nil
		}
		r.Class = ClassNew
		r.Message = messageNew
		if c.stamp != "" {
			blk.SetSyncCommit(c.stamp)
			r.Stamped = true
		}
		return r, nil
	}

	// Default mode: drifted. ModeAll without a stamp takes the same path,
	// it only widens which files count as processed.
	if _, err := os.Stat(counterpart); err != nil {
		if !os.IsNotExist(err) {
			return r, err
		}
		r.Class = ClassOrphaned
		r.Message = "counterpart not found: " + counterpart
		// The sentinel needs a baseline to hang off; a file that never had
		// one is reported but left untouched.
		if hasSync {
			if err := blk.SetDrifted(frontmatter.DriftedFileNotFound); err != nil {
				return r, err
			}
		}
		return r, nil
	}

	// An empty baseline can never be in sync with an existing counterpart,
	// so there is nothing to diff.
	if !hasSync {
		r.Class = ClassNew
		r.Message = messageNew
		if c.stamp != "" {
			blk.SetSyncCommit(c.stamp)
			r.Stamped = true
		}
		return r, nil
	}

	diff, err := c.git.DiffFile(ctx, frontmatter.StripSuffix(syncCommit), "HEAD", counterpart, c.opts.ShowDiff)
	if err != nil {
		return r, err
	}
	if diff.Status > 1 {
		// Recoverable: reported and counted, metadata untouched, run goes on.
		r.Class = ClassDiffError
		r.DiffStatus = diff.Status
		r.Message = diff.Summary
		return r, nil
	}

	if diff.Changed {
		r.Class = ClassDrifted
		if c.opts.ShowDiff {
			r.Message = diff.Summary
		}
		if c.stamp != "" {
			if err := c.ensureOnDefaultBranch(ctx, c.stamp); err != nil {
				return r, err
			}
			blk.SetSyncCommit(c.stamp)
			if err := blk.SetDrifted(frontmatter.DriftedTrue); err != nil {
				return r, err
			}
			r.Stamped = true
		} else if c.opts.SetDrifted {
			if err := blk.SetDrifted(frontmatter.DriftedTrue); err != nil {
				return r, err
			}
		}
		return r, nil
	}

	r.Class = ClassInSync
	// Clears any stale drifted key; absence means not drifted.
	if err := blk.SetDrifted(frontmatter.DriftedFalse); err != nil {
		return r, err
	}
	return r, nil
}

// ensureOnDefaultBranch guards re-stamping: the new baseline must already be
// part of the default branch's history.
func (c *Classifier) ensureOnDefaultBranch(ctx context.Context, hash string) error {
	branches, err := c.git.BranchesContaining(ctx, frontmatter.StripSuffix(hash))
	if err != nil {
		return err
	}
	if !branches[c.site.DefaultBranch] {
		return &NotOnDefaultBranchError{Hash: hash, Branch: c.site.DefaultBranch}
	}
	return nil
}
