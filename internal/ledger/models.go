package ledger

import (
	"time"
)

// Build is one recorded build attempt.
type Build struct {
	ID          string
	Crate       string
	Mode        string // mode the compiler ran in
	Source      string // remote or local
	Origin      string // repository URL or local path
	SourceDir   string
	Artifact    string
	Outcome     string
	Error       string
	Revision    string // git HEAD of a remote checkout
	Fingerprint string // source tree digest
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Duration returns how long the build took.
func (b Build) Duration() time.Duration {
	return b.FinishedAt.Sub(b.StartedAt)
}

// buildModel is the builds row. Times are Unix milliseconds.
type buildModel struct {
	ID          string
	Crate       string
	Mode        string
	Source      string
	Origin      string
	SourceDir   string
	Artifact    string
	Outcome     string
	Error       *string // nullable
	Revision    *string // nullable
	Fingerprint *string // nullable
	StartedAt   int64
	FinishedAt  int64
}

func toModel(b Build) buildModel {
	return buildModel{
		ID:          b.ID,
		Crate:       b.Crate,
		Mode:        b.Mode,
		Source:      b.Source,
		Origin:      b.Origin,
		SourceDir:   b.SourceDir,
		Artifact:    b.Artifact,
		Outcome:     b.Outcome,
		Error:       nullable(b.Error),
		Revision:    nullable(b.Revision),
		Fingerprint: nullable(b.Fingerprint),
		StartedAt:   b.StartedAt.UnixMilli(),
		FinishedAt:  b.FinishedAt.UnixMilli(),
	}
}

func (m buildModel) toBuild() Build {
	return Build{
		ID:          m.ID,
		Crate:       m.Crate,
		Mode:        m.Mode,
		Source:      m.Source,
		Origin:      m.Origin,
		SourceDir:   m.SourceDir,
		Artifact:    m.Artifact,
		Outcome:     m.Outcome,
		Error:       deref(m.Error),
		Revision:    deref(m.Revision),
		Fingerprint: deref(m.Fingerprint),
		StartedAt:   time.UnixMilli(m.StartedAt),
		FinishedAt:  time.UnixMilli(m.FinishedAt),
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
