package bench

import (
	"time"

	"github.com/karlbench/karlbench/blockcopy"
)

// PhaseResult holds the measurements of one completed copy phase.
type PhaseResult struct {
	Phase       Phase              `json:"phase"`
	BytesCopied int64              `json:"bytes_copied"`
	ElapsedMs   int64              `json:"elapsed_ms"`
	Samples     []blockcopy.Sample `json:"samples"`
}

// Result is the outcome of one benchmark run. A run that aborted still
// carries the phases that completed before the failure.
type Result struct {
	ID            string        `json:"id"`
	Device        string        `json:"device"`
	Config        Config        `json:"config"`
	State         State         `json:"state"`
	StartedAt     time.Time     `json:"started_at"`
	Phases        []PhaseResult `json:"phases"`
	CleanupErrors []string      `json:"cleanup_errors,omitempty"`
}

// Phase returns the result of phase p if it completed.
func (r *Result) Phase(p Phase) (PhaseResult, bool) {
	for _, pr := range r.Phases {
		if pr.Phase == p {
			return pr, true
		}
	}

	return PhaseResult{}, false
}
