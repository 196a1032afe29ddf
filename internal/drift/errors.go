package drift

import "fmt"

// NoTargetsError reports a directory argument that contained no tracked files
type NoTargetsError struct {
	Dir string
}

func (e *NoTargetsError) Error() string {
	return fmt.Sprintf("no tracked files found under %s", e.Dir)
}

// TargetNotFoundError reports a target path that does not exist. Callers map
// it to exit code 2.
type TargetNotFoundError struct {
	Path string
}

func (e *TargetNotFoundError) Error() string {
	return fmt.Sprintf("target path not found: %s", e.Path)
}

// NotOnDefaultBranchError rejects a stamp hash that is not reachable from
// the default branch. Baselining to an unmerged commit would record a sync
// point the default branch never saw, so the whole run aborts.
type NotOnDefaultBranchError struct {
	Hash   string
	Branch string
}

func (e *NotOnDefaultBranchError) Error() string {
	return fmt.Sprintf("commit %s is not on the default branch %s", e.Hash, e.Branch)
}
