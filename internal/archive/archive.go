// Package archive persists every accepted submission into a local
// SQLite database; the submission manager's top-3 acceptedBest list is
// not stored. This is
// independent of the submission journal (pending-queue durability):
// the archive is a queryable history of everything ever accepted.
package archive

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/davelindo/galleryofbabel/internal/errs"
)

const schema = `
CREATE TABLE IF NOT EXISTS accepted (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	seed INTEGER NOT NULL,
	score REAL NOT NULL,
	rank INTEGER,
	accepted_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_accepted_score ON accepted(score DESC);
`

// Archive wraps a SQLite-backed history of accepted submissions.
type Archive struct {
	db *sql.DB
}

// Open creates (or reuses) the SQLite file at path and ensures the
// schema exists.
func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errs.New("archive", errs.IOTransient, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errs.New("archive", errs.IOTransient, err)
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error { return a.db.Close() }

// AcceptedRecord is one row of submission history.
type AcceptedRecord struct {
	Seed       uint64
	Score      float64
	Rank       *int
	AcceptedAt time.Time
}

// RecordAccepted inserts one accepted submission.
func (a *Archive) RecordAccepted(ctx context.Context, rec AcceptedRecord) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO accepted (seed, score, rank, accepted_at) VALUES (?, ?, ?, ?)`,
		rec.Seed, rec.Score, rec.Rank, rec.AcceptedAt,
	)
	if err != nil {
		return errs.New("archive", errs.IOTransient, err)
	}
	return nil
}

// TopN returns the n highest-scoring accepted records ever recorded.
func (a *Archive) TopN(ctx context.Context, n int) ([]AcceptedRecord, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT seed, score, rank, accepted_at FROM accepted ORDER BY score DESC LIMIT ?`, n)
	if err != nil {
		return nil, errs.New("archive", errs.IOTransient, err)
	}
	defer rows.Close()

	var out []AcceptedRecord
	for rows.Next() {
		var rec AcceptedRecord
		var rank sql.NullInt64
		if err := rows.Scan(&rec.Seed, &rec.Score, &rank, &rec.AcceptedAt); err != nil {
			return nil, errs.New("archive", errs.DataCorruption, err)
		}
		if rank.Valid {
			v := int(rank.Int64)
			rec.Rank = &v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the total number of accepted records.
func (a *Archive) Count(ctx context.Context) (int, error) {
	var n int
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accepted`).Scan(&n); err != nil {
		return 0, errs.New("archive", errs.IOTransient, err)
	}
	return n, nil
}
