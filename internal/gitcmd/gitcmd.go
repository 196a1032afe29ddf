package gitcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner provides read-only history queries against a git repository
type Runner interface {
	// MergeBase returns the best common ancestor of two refs
	MergeBase(ctx context.Context, refA, refB string) (string, error)
	// Resolve resolves a ref to a full commit id
	Resolve(ctx context.Context, ref string) (string, error)
	// DiffFile diffs a single path between a commit and a ref. The git exit
	// status is propagated verbatim in the result: 0 no changes, 1 changes,
	// anything above that is a git-level failure the caller must handle.
	DiffFile(ctx context.Context, commit, ref, path string, detail bool) (DiffResult, error)
	// BranchesContaining lists the local branches whose history contains commit
	BranchesContaining(ctx context.Context, commit string) (map[string]bool, error)
}

// DiffResult is the outcome of a single-file diff query
type DiffResult struct {
	Changed bool
	Summary string
	Status  int
}

// VcsError reports a failed git query
type VcsError struct {
	Op     string
	Status int
	Stderr string
	Err    error
}

func (e *VcsError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("git %s failed: %v: %s", e.Op, e.Err, e.Stderr)
	}
	return fmt.Sprintf("git %s failed: %v", e.Op, e.Err)
}

func (e *VcsError) Unwrap() error {
	return e.Err
}

// ShellRunner implements Runner by shelling out to the git command
type ShellRunner struct {
	dir string
}

// NewShellRunner creates a runner operating on the repository at dir.
// An empty dir means the current working directory.
func NewShellRunner(dir string) *ShellRunner {
	if dir == "" {
		dir = "."
	}
	return &ShellRunner{dir: dir}
}

// MergeBase returns the best common ancestor of refA and refB
func (r *ShellRunner) MergeBase(ctx context.Context, refA, refB string) (string, error) {
	out, err := r.output(ctx, "merge-base", refA, refB)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Resolve resolves a ref to its full commit id
func (r *ShellRunner) Resolve(ctx context.Context, ref string) (string, error) {
	out, err := r.output(ctx, "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// DiffFile diffs path between commit and ref. With detail set the full patch
// is captured in the summary; otherwise the diff runs quietly and only the
// exit status is of interest. The status is never swallowed: invalid commits
// surface as Status > 1 so the caller can count and report them.
func (r *ShellRunner) DiffFile(ctx context.Context, commit, ref, path string, detail bool) (DiffResult, error) {
	args := []string{"diff", "--exit-code"}
	if !detail {
		args = append(args, "--quiet")
	}
	args = append(args, commit, ref, "--", path)

	cmd := r.command(ctx, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	status := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// git missing, context canceled and the like
			return DiffResult{}, &VcsError{Op: "diff", Err: err}
		}
		status = exitErr.ExitCode()
	}

	res := DiffResult{
		Changed: status == 1,
		Summary: strings.TrimRight(stdout.String(), "\n"),
		Status:  status,
	}
	if status > 1 {
		res.Summary = strings.TrimSpace(stderr.String())
	}
	return res, nil
}

// BranchesContaining returns the set of local branch names containing commit
func (r *ShellRunner) BranchesContaining(ctx context.Context, commit string) (map[string]bool, error) {
	out, err := r.output(ctx, "branch", "--contains", commit, "--format=%(refname:short)")
	if err != nil {
		return nil, err
	}

	branches := make(map[string]bool)
	for _, line := range strings.Split(out, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			branches[name] = true
		}
	}
	return branches, nil
}

func (r *ShellRunner) command(ctx context.Context, args ...string) *exec.Cmd {
	full := append([]string{"-C", r.dir}, args...)
	return exec.CommandContext(ctx, "git", full...)
}

// output runs a git query and returns stdout, wrapping failures with stderr
func (r *ShellRunner) output(ctx context.Context, args ...string) (string, error) {
	cmd := r.command(ctx, args...)
	out, err := cmd.Output()
	if err != nil {
		verr := &VcsError{Op: args[0], Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			verr.Status = exitErr.ExitCode()
			verr.Stderr = strings.TrimSpace(string(exitErr.Stderr))
		}
		return "", verr
	}
	return string(out), nil
}
