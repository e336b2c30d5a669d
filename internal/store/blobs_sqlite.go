package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNoDocument is returned by Latest when nothing has been stored yet.
var ErrNoDocument = errors.New("no family document stored")

// BlobStore keeps every pushed family document as an immutable revision in
// a sqlite file. The newest revision is the current document.
type BlobStore struct {
	Path string
}

type Revision struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Size      int       `json:"size"`
	Body      []byte    `json:"-"`
}

func (s BlobStore) open(ctx context.Context) (*sql.DB, error) {
	path := strings.TrimSpace(s.Path)
	if path == "" {
		return nil, errors.New("blob store: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL enables one writer + many readers; busy_timeout avoids "database is locked" between CLI and server.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateBlobs(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrateBlobs(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS family_revisions (
			id TEXT PRIMARY KEY,
			seq INTEGER NOT NULL,
			body TEXT NOT NULL,
			created_at_unixms INTEGER NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_family_revisions_seq ON family_revisions(seq);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// Put stores body as the newest revision.
func (s BlobStore) Put(ctx context.Context, body []byte) (Revision, error) {
	db, err := s.open(ctx)
	if err != nil {
		return Revision{}, err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return Revision{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM family_revisions`).Scan(&seq); err != nil {
		return Revision{}, err
	}
	rev := Revision{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		Size:      len(body),
		Body:      body,
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO family_revisions(id, seq, body, created_at_unixms) VALUES(?, ?, ?, ?)`,
		rev.ID, seq, string(body), rev.CreatedAt.UnixMilli()); err != nil {
		return Revision{}, err
	}
	if err := tx.Commit(); err != nil {
		return Revision{}, err
	}
	return rev, nil
}

// Latest returns the newest revision or ErrNoDocument.
func (s BlobStore) Latest(ctx context.Context) (Revision, error) {
	db, err := s.open(ctx)
	if err != nil {
		return Revision{}, err
	}
	defer db.Close()

	var (
		rev  Revision
		body string
		ms   int64
	)
	err = db.QueryRowContext(ctx, `SELECT id, body, created_at_unixms FROM family_revisions ORDER BY seq DESC LIMIT 1`).Scan(&rev.ID, &body, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return Revision{}, ErrNoDocument
	}
	if err != nil {
		return Revision{}, err
	}
	rev.Body = []byte(body)
	rev.Size = len(body)
	rev.CreatedAt = time.UnixMilli(ms).UTC()
	return rev, nil
}

// Revisions lists revisions newest first, without bodies. limit <= 0 means all.
func (s BlobStore) Revisions(ctx context.Context, limit int) ([]Revision, error) {
	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	q := `SELECT id, length(body), created_at_unixms FROM family_revisions ORDER BY seq DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Revision{}
	for rows.Next() {
		var (
			rev Revision
			ms  int64
		)
		if err := rows.Scan(&rev.ID, &rev.Size, &ms); err != nil {
			return nil, err
		}
		rev.CreatedAt = time.UnixMilli(ms).UTC()
		out = append(out, rev)
	}
	return out, rows.Err()
}

// Prune keeps the newest keep revisions and deletes the rest.
func (s BlobStore) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}
	db, err := s.open(ctx)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	res, err := db.ExecContext(ctx, `DELETE FROM family_revisions WHERE seq <= (SELECT COALESCE(MAX(seq), 0) FROM family_revisions) - ?`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
