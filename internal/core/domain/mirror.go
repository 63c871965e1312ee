package domain

import "time"

// MirrorState is the state of a local mirror before it is processed.
type MirrorState int

const (
	// MirrorAbsent means no marker file exists: the mirror must be cloned.
	MirrorAbsent MirrorState = iota

	// MirrorPresent means the marker file exists: the mirror is updated.
	MirrorPresent
)

func (s MirrorState) String() string {
	if s == MirrorPresent {
		return "present"
	}
	return "absent"
}

// MirrorAction is what the engine did to a mirror.
type MirrorAction string

const (
	ActionCloned  MirrorAction = "cloned"
	ActionUpdated MirrorAction = "updated"
	ActionFailed  MirrorAction = "failed"
	ActionSkipped MirrorAction = "skipped"
)

// MirrorRecord is the ledger entry of a local mirror directory.
type MirrorRecord struct {
	// Path is the clone directory; it is the primary key.
	Path string

	EntityID   string
	EntityKind EntityKind
	Name       string
	CloneURL   string
	LastAction MirrorAction
	LastRunID  string
	UpdatedAt  time.Time
}

// RunStatus is the final status of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunReport summarises one run.
type RunReport struct {
	RunID      string
	Account    string
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt time.Time

	Cloned  int
	Updated int
	Failed  int
	Skipped int

	// Failures lists the non-fatal errors, one per failed mirror.
	Failures []error
}

// Duration returns how long the run took.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Record counts a mirror outcome.
func (r *RunReport) Record(action MirrorAction, err error) {
	switch action {
	case ActionCloned:
		r.Cloned++
	case ActionUpdated:
		r.Updated++
	case ActionSkipped:
		r.Skipped++
	case ActionFailed:
		r.Failed++
		if err != nil {
			r.Failures = append(r.Failures, err)
		}
	}
}
