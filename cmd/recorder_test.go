package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/bolt/internal/buildmode"
	"github.com/zjrosen/bolt/internal/fingerprint"
	"github.com/zjrosen/bolt/internal/ledger"
	"github.com/zjrosen/bolt/internal/orchestrator"
)

type fakeRevisions struct {
	rev   string
	err   error
	calls []string
}

func (f *fakeRevisions) Revision(_ context.Context, dir string) (string, error) {
	f.calls = append(f.calls, dir)
	return f.rev, f.err
}

func openLedger(t *testing.T) *ledger.DB {
	t.Helper()
	db, err := ledger.Open(filepath.Join(t.TempDir(), ledger.FileName))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func crateDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Cargo.toml"), "[package]\nname = \"mylib\"\n")
	writeFile(t, filepath.Join(dir, "src", "lib.rs"), "pub fn hello() {}\n")
	return dir
}

func record(source orchestrator.SourceKind, outcome orchestrator.Outcome, dir string) orchestrator.BuildRecord {
	started := time.UnixMilli(1_700_000_000_000)
	rec := orchestrator.BuildRecord{
		Crate:      "mylib",
		Mode:       buildmode.Release,
		Source:     source,
		Origin:     "https://github.com/me/mylib",
		SourceDir:  dir,
		Artifact:   "/cache/lib/release/libmylib.so",
		Outcome:    outcome,
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
	}
	if outcome == orchestrator.OutcomeFailed {
		rec.Error = "compile failed"
	}
	return rec
}

func TestHistoryRecorder_PlainRecord(t *testing.T) {
	db := openLedger(t)
	revs := &fakeRevisions{rev: "abc123"}
	r := &historyRecorder{ledger: db, revisions: revs}

	rec := record(orchestrator.SourceRemote, orchestrator.OutcomeBuilt, crateDir(t))
	require.NoError(t, r.Record(context.Background(), rec))

	got, err := db.Latest(context.Background(), "mylib", "release")
	require.NoError(t, err)
	require.Equal(t, "remote", got.Source)
	require.Equal(t, "built", got.Outcome)
	require.Equal(t, rec.Artifact, got.Artifact)
	require.Equal(t, 2*time.Second, got.Duration())
	require.Empty(t, got.Revision)
	require.Empty(t, got.Fingerprint)
	require.Empty(t, revs.calls, "revision is not read unless enabled")
}

func TestHistoryRecorder_Provenance(t *testing.T) {
	db := openLedger(t)
	dir := crateDir(t)
	revs := &fakeRevisions{rev: "abc123"}
	r := &historyRecorder{ledger: db, revisions: revs, revision: true, fingerprint: true}

	require.NoError(t, r.Record(context.Background(), record(orchestrator.SourceRemote, orchestrator.OutcomeBuilt, dir)))

	want, err := fingerprint.Tree(dir)
	require.NoError(t, err)

	got, err := db.Latest(context.Background(), "mylib", "")
	require.NoError(t, err)
	require.Equal(t, "abc123", got.Revision)
	require.Equal(t, want, got.Fingerprint)
	require.Equal(t, []string{dir}, revs.calls)
}

func TestHistoryRecorder_LocalHasNoRevision(t *testing.T) {
	db := openLedger(t)
	revs := &fakeRevisions{rev: "abc123"}
	r := &historyRecorder{ledger: db, revisions: revs, revision: true}

	require.NoError(t, r.Record(context.Background(), record(orchestrator.SourceLocal, orchestrator.OutcomeBuilt, crateDir(t))))

	got, err := db.Latest(context.Background(), "mylib", "")
	require.NoError(t, err)
	require.Empty(t, got.Revision)
	require.Empty(t, revs.calls)
}

func TestHistoryRecorder_FailedBuildSkipsProvenance(t *testing.T) {
	db := openLedger(t)
	revs := &fakeRevisions{rev: "abc123"}
	r := &historyRecorder{ledger: db, revisions: revs, revision: true, fingerprint: true}

	require.NoError(t, r.Record(context.Background(), record(orchestrator.SourceRemote, orchestrator.OutcomeFailed, crateDir(t))))

	got, err := db.Latest(context.Background(), "mylib", "")
	require.NoError(t, err)
	require.Equal(t, "failed", got.Outcome)
	require.Equal(t, "compile failed", got.Error)
	require.Empty(t, got.Revision)
	require.Empty(t, got.Fingerprint)
	require.Empty(t, revs.calls)
}

func TestHistoryRecorder_ProvenanceErrorsAreNotFatal(t *testing.T) {
	db := openLedger(t)
	revs := &fakeRevisions{err: errors.New("not a git repository")}
	r := &historyRecorder{ledger: db, revisions: revs, revision: true, fingerprint: true}

	missing := filepath.Join(t.TempDir(), "gone")
	require.NoError(t, r.Record(context.Background(), record(orchestrator.SourceRemote, orchestrator.OutcomeBuilt, missing)))

	got, err := db.Latest(context.Background(), "mylib", "")
	require.NoError(t, err)
	require.Equal(t, "built", got.Outcome)
	require.Empty(t, got.Revision)
	require.Empty(t, got.Fingerprint)
}

func TestHistoryRecorder_LedgerClosed(t *testing.T) {
	db, err := ledger.Open(filepath.Join(t.TempDir(), ledger.FileName))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	r := &historyRecorder{ledger: db}
	err = r.Record(context.Background(), record(orchestrator.SourceLocal, orchestrator.OutcomeBuilt, os.TempDir()))
	require.Error(t, err)
}
