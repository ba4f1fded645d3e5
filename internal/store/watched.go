package store

import (
	"context"
	"time"

	"github.com/dwhsync/dwhsync/internal/errors"
	"github.com/dwhsync/dwhsync/internal/snapshot"
)

// Watched-file kinds persisted alongside each fingerprint.
const (
	kindDocument    = "document"
	kindSpreadsheet = "spreadsheet"
)

// SaveWatched replaces the persisted snapshot with the state observed by
// the cycle that just finished: document fingerprints plus the
// spreadsheet fingerprint (empty map when the spreadsheet is absent).
// One transaction, all or nothing.
func (s *Store) SaveWatched(ctx context.Context, docs, sheet snapshot.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.New(errors.ErrCodeWriteFailed, "begin snapshot transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM watched_files"); err != nil {
		return errors.New(errors.ErrCodeWriteFailed, "clearing persisted snapshot", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO watched_files (path, kind, mtime_ns, size)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return errors.New(errors.ErrCodeWriteFailed, "preparing snapshot insert", err)
	}
	defer stmt.Close()

	for path, fp := range docs {
		if _, err := stmt.ExecContext(ctx, path, kindDocument, fp.ModTime.UnixNano(), fp.Size); err != nil {
			return errors.New(errors.ErrCodeWriteFailed, "persisting document fingerprint", err).
				WithDetail("path", path)
		}
	}
	for path, fp := range sheet {
		if _, err := stmt.ExecContext(ctx, path, kindSpreadsheet, fp.ModTime.UnixNano(), fp.Size); err != nil {
			return errors.New(errors.ErrCodeWriteFailed, "persisting spreadsheet fingerprint", err).
				WithDetail("path", path)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.New(errors.ErrCodeWriteFailed, "commit snapshot transaction", err)
	}
	return nil
}

// LoadWatched returns the snapshot persisted by the previous cycle,
// split into document fingerprints and the spreadsheet fingerprint.
// Both maps are empty on a fresh database.
func (s *Store) LoadWatched(ctx context.Context) (snapshot.Snapshot, snapshot.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT path, kind, mtime_ns, size FROM watched_files")
	if err != nil {
		return nil, nil, errors.New(errors.ErrCodeQueryFailed, "loading persisted snapshot", err)
	}
	defer rows.Close()

	docs := snapshot.Snapshot{}
	sheet := snapshot.Snapshot{}
	for rows.Next() {
		var path, kind string
		var mtimeNS, size int64
		if err := rows.Scan(&path, &kind, &mtimeNS, &size); err != nil {
			return nil, nil, errors.New(errors.ErrCodeQueryFailed, "scanning persisted fingerprint", err)
		}
		fp := snapshot.Fingerprint{ModTime: time.Unix(0, mtimeNS), Size: size}
		if kind == kindSpreadsheet {
			sheet[path] = fp
		} else {
			docs[path] = fp
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.New(errors.ErrCodeQueryFailed, "iterating persisted snapshot", err)
	}

	return docs, sheet, nil
}
