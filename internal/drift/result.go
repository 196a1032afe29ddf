package drift

// Class is the drift classification of a single tracked file. It is
// recomputed on every run; only the front-matter keys persist.
type Class string

const (
	ClassInSync    Class = "in-sync"
	ClassDrifted   Class = "drifted"
	ClassNew       Class = "new"
	ClassOrphaned  Class = "orphaned"
	ClassDiffError Class = "diff-error"
	ClassStamped   Class = "stamped"
	ClassSkipped   Class = "skipped"
)

// Result is the classification of one tracked file
type Result struct {
	Path       string
	Language   string
	Class      Class
	Message    string
	DiffStatus int  // git diff exit status when Class is ClassDiffError
	Stamped    bool // a new sync commit was recorded
}

// Summary aggregates a whole run. It replaces implicit global counters with
// an explicit return value.
type Summary struct {
	Total     int // files enumerated
	Processed int // files selected by the active mode
	ByClass   map[Class]int
	Results   []Result
	ExitCode  int

	worstDiffStatus int
}

func newSummary() *Summary {
	return &Summary{ByClass: make(map[Class]int)}
}

func (s *Summary) add(r Result, processed bool) {
	s.Total++
	if processed {
		s.Processed++
	}
	s.ByClass[r.Class]++
	s.Results = append(s.Results, r)
	if r.Class == ClassDiffError && r.DiffStatus > s.worstDiffStatus {
		s.worstDiffStatus = r.DiffStatus
	}
}
