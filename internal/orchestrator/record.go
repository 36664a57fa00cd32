package orchestrator

import (
	"context"
	"time"

	"github.com/zjrosen/bolt/internal/buildmode"
)

// Outcome is the result of one crate build attempt.
type Outcome string

const (
	OutcomeBuilt  Outcome = "built"
	OutcomeFailed Outcome = "failed"
)

// BuildRecord describes one fetch-and-compile attempt. Fast-path skips are
// not recorded.
type BuildRecord struct {
	Crate      string
	Mode       buildmode.Mode // mode the compiler ran in
	Source     SourceKind
	Origin     string
	SourceDir  string
	Artifact   string
	Outcome    Outcome
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Recorder receives a BuildRecord after every build attempt. A Recorder
// error is logged and never fails the build.
type Recorder interface {
	Record(ctx context.Context, rec BuildRecord) error
}
