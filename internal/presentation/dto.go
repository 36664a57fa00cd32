package presentation

import (
	"time"

	"github.com/zjrosen/bolt/internal/ledger"
)

// BuildDTO represents a recorded build for presentation
type BuildDTO struct {
	ID          string    `json:"id"`
	Crate       string    `json:"crate"`
	Mode        string    `json:"mode"`
	Source      string    `json:"source"`
	Origin      string    `json:"origin"`
	Artifact    string    `json:"artifact"`
	Outcome     string    `json:"outcome"`
	Error       string    `json:"error,omitempty"`
	Revision    string    `json:"revision,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
}

// CrateStatusDTO represents the cache state of one configured crate
type CrateStatusDTO struct {
	Name        string    `json:"name"`
	Source      string    `json:"source"`
	Origin      string    `json:"origin"`
	CompileMode string    `json:"compile_mode"`
	Artifact    string    `json:"artifact"`
	Built       bool      `json:"built"`
	Changed     bool      `json:"changed"` // sources differ from the last recorded build
	LastBuild   *BuildDTO `json:"last_build,omitempty"`
}

// FromLedgerBuild converts a ledger row to a DTO
func FromLedgerBuild(b ledger.Build) BuildDTO {
	return BuildDTO{
		ID:          b.ID,
		Crate:       b.Crate,
		Mode:        b.Mode,
		Source:      b.Source,
		Origin:      b.Origin,
		Artifact:    b.Artifact,
		Outcome:     b.Outcome,
		Error:       b.Error,
		Revision:    b.Revision,
		Fingerprint: b.Fingerprint,
		StartedAt:   b.StartedAt,
		DurationMS:  b.Duration().Milliseconds(),
	}
}

// FromLedgerBuilds converts a list of ledger rows, keeping order
func FromLedgerBuilds(builds []ledger.Build) []BuildDTO {
	dtos := make([]BuildDTO, 0, len(builds))
	for _, b := range builds {
		dtos = append(dtos, FromLedgerBuild(b))
	}
	return dtos
}
