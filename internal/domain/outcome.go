package domain

import "time"

// Mode identifies how a run was invoked.
type Mode string

const (
	ModeOnDemand  Mode = "on_demand"
	ModeScheduled Mode = "scheduled"
)

// WorkerOutcome is the tagged result for one worker artifact.
type WorkerOutcome struct {
	TenantSlug string
	WorkerID   string
	WorkerName string

	// Stage is StageUploaded or StageSkipped.
	Stage Stage
	// Reached is the last stage completed before the outcome was decided.
	Reached Stage

	Artifact string
	Revision int
	Size     int
	Err      error
}

// Uploaded reports whether the artifact reached storage.
func (o WorkerOutcome) Uploaded() bool {
	return o.Stage == StageUploaded
}

// TenantOutcome summarizes one tenant within a run.
type TenantOutcome struct {
	Slug   string
	Window Window

	// Err is set when the tenant was skipped as a whole.
	Err error
	// StateErr is set when persisting the dispatch state failed. Uploaded
	// artifacts remain valid.
	StateErr error
	// StateDay is the persisted last dispatched day, zero when not persisted.
	StateDay int
}

// RunSummary is the end-of-run report.
type RunSummary struct {
	RunID      string
	Mode       Mode
	Today      time.Time
	ChunkSize  int
	ChunkIndex int
	DueTotal   int
	Tenants    []TenantOutcome
	Workers    []WorkerOutcome
}

// Counts returns the number of uploaded and skipped artifacts.
func (s RunSummary) Counts() (uploaded, skipped int) {
	for _, w := range s.Workers {
		if w.Uploaded() {
			uploaded++
		} else {
			skipped++
		}
	}
	return uploaded, skipped
}

// Partial reports whether anything in the run was skipped or failed.
func (s RunSummary) Partial() bool {
	_, skipped := s.Counts()
	if skipped > 0 {
		return true
	}
	for _, t := range s.Tenants {
		if t.Err != nil || t.StateErr != nil {
			return true
		}
	}
	return false
}
