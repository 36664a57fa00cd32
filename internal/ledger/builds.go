package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no build matches a lookup.
var ErrNotFound = errors.New("no recorded build")

const buildColumns = `id, crate, mode, source, origin, source_dir, artifact, outcome,
	error, revision, fingerprint, started_at, finished_at`

func scanBuild(scanner interface{ Scan(...any) error }) (buildModel, error) {
	var m buildModel
	err := scanner.Scan(
		&m.ID, &m.Crate, &m.Mode, &m.Source, &m.Origin, &m.SourceDir, &m.Artifact, &m.Outcome,
		&m.Error, &m.Revision, &m.Fingerprint, &m.StartedAt, &m.FinishedAt,
	)
	return m, err
}

// Insert stores b and returns it with its ID assigned. An ID already set on
// b is kept.
func (db *DB) Insert(ctx context.Context, b Build) (Build, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	m := toModel(b)
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO builds (`+buildColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Crate, m.Mode, m.Source, m.Origin, m.SourceDir, m.Artifact, m.Outcome,
		m.Error, m.Revision, m.Fingerprint, m.StartedAt, m.FinishedAt,
	)
	if err != nil {
		return Build{}, fmt.Errorf("failed to insert build: %w", err)
	}
	return b, nil
}

// Get returns the build with the given ID.
func (db *DB) Get(ctx context.Context, id string) (Build, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+buildColumns+` FROM builds WHERE id = ?`, id)
	m, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Build{}, fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	if err != nil {
		return Build{}, fmt.Errorf("failed to get build: %w", err)
	}
	return m.toBuild(), nil
}

// Latest returns the most recent build of crate compiled in mode. An empty
// mode matches any mode.
func (db *DB) Latest(ctx context.Context, crate, mode string) (Build, error) {
	builds, err := db.List(ctx, Filter{Crate: crate, Mode: mode, Limit: 1})
	if err != nil {
		return Build{}, err
	}
	if len(builds) == 0 {
		return Build{}, fmt.Errorf("%w: crate %q", ErrNotFound, crate)
	}
	return builds[0], nil
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Crate   string
	Mode    string
	Outcome string
	// Limit caps the number of rows; zero means no limit.
	Limit int
}

// List returns matching builds, newest first.
func (db *DB) List(ctx context.Context, f Filter) ([]Build, error) {
	var (
		where []string
		args  []any
	)
	if f.Crate != "" {
		where = append(where, "crate = ?")
		args = append(args, f.Crate)
	}
	if f.Mode != "" {
		where = append(where, "mode = ?")
		args = append(args, f.Mode)
	}
	if f.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, f.Outcome)
	}

	query := `SELECT ` + buildColumns + ` FROM builds`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY started_at DESC, rowid DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}
	defer rows.Close()

	builds := []Build{}
	for rows.Next() {
		m, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan build: %w", err)
		}
		builds = append(builds, m.toBuild())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}
	return builds, nil
}

// Prune keeps the newest keep builds of every crate and deletes the rest.
// It returns the number of rows deleted. keep <= 0 keeps everything.
func (db *DB) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := db.conn.ExecContext(ctx, `
		DELETE FROM builds WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY crate ORDER BY started_at DESC, rowid DESC
				) AS n
				FROM builds
			) WHERE n > ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune builds: %w", err)
	}
	return res.RowsAffected()
}
