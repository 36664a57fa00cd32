package cmd

import (
	"context"

	"github.com/zjrosen/bolt/internal/fingerprint"
	"github.com/zjrosen/bolt/internal/ledger"
	"github.com/zjrosen/bolt/internal/log"
	"github.com/zjrosen/bolt/internal/orchestrator"
)

// revisionReader reads the HEAD commit of a checkout.
type revisionReader interface {
	Revision(ctx context.Context, dir string) (string, error)
}

// historyRecorder persists orchestrator build records to the ledger,
// optionally with the checkout revision and a source fingerprint.
type historyRecorder struct {
	ledger      *ledger.DB
	revisions   revisionReader
	revision    bool
	fingerprint bool
}

var _ orchestrator.Recorder = (*historyRecorder)(nil)

func (r *historyRecorder) Record(ctx context.Context, rec orchestrator.BuildRecord) error {
	b := ledger.Build{
		Crate:      rec.Crate,
		Mode:       rec.Mode.String(),
		Source:     string(rec.Source),
		Origin:     rec.Origin,
		SourceDir:  rec.SourceDir,
		Artifact:   rec.Artifact,
		Outcome:    string(rec.Outcome),
		Error:      rec.Error,
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.FinishedAt,
	}

	// A failed fetch leaves nothing worth describing.
	if rec.Outcome == orchestrator.OutcomeBuilt {
		if r.revision && rec.Source == orchestrator.SourceRemote && r.revisions != nil {
			rev, err := r.revisions.Revision(ctx, rec.SourceDir)
			if err != nil {
				log.Warn(log.CatLedger, "Failed to read revision", "crate", rec.Crate, "error", err)
			}
			b.Revision = rev
		}
		if r.fingerprint {
			sum, err := fingerprint.Tree(rec.SourceDir)
			if err != nil {
				log.Warn(log.CatLedger, "Failed to fingerprint sources", "crate", rec.Crate, "error", err)
			}
			b.Fingerprint = sum
		}
	}

	saved, err := r.ledger.Insert(ctx, b)
	if err != nil {
		return err
	}
	log.Debug(log.CatLedger, "Recorded build", "id", saved.ID, "crate", saved.Crate, "outcome", saved.Outcome)
	return nil
}
