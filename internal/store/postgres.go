package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// DefaultTable is the table PGStore uses when none is configured.
const DefaultTable = "modelkeeper_documents"

// querier is the subset of *pgxpool.Pool PGStore uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore keeps documents in a single Postgres table. Revisions are checked
// in the UPDATE predicate so concurrent writers cannot overwrite each other.
type PGStore struct {
	db    querier
	pool  *pgxpool.Pool
	table string
}

// OpenPG connects to Postgres and ensures the document table exists.
func OpenPG(ctx context.Context, dsn, table string) (*PGStore, error) {
	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	s := newPGStore(pool, table)
	s.pool = pool
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func newPGStore(db querier, table string) *PGStore {
	if table == "" {
		table = DefaultTable
	}
	return &PGStore{db: db, table: pgx.Identifier{table}.Sanitize()}
}

// Migrate creates the document table if missing.
func (s *PGStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+s.table+` (
	id         text PRIMARY KEY,
	rev        bigint NOT NULL,
	kind       text NOT NULL,
	deleted    boolean NOT NULL DEFAULT false,
	body       bytea,
	updated_at timestamptz NOT NULL DEFAULT now()
)`)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PGStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PGStore) Get(ctx context.Context, id string) (Document, error) {
	d := Document{ID: id}
	err := s.db.QueryRow(ctx,
		`SELECT rev, kind, deleted, body FROM `+s.table+` WHERE id = $1`, id,
	).Scan(&d.Rev, &d.Kind, &d.Deleted, &d.Body)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("store: get %s: %w", id, err)
	}
	if d.Deleted {
		return Document{}, ErrNotFound
	}
	return d, nil
}

func (s *PGStore) Put(ctx context.Context, doc Document) (int64, error) {
	if doc.Rev == 0 {
		_, err := s.db.Exec(ctx,
			`INSERT INTO `+s.table+` (id, rev, kind, deleted, body) VALUES ($1, 1, $2, $3, $4)`,
			doc.ID, doc.Kind, doc.Deleted, doc.Body,
		)
		if pgerr := new(pgconn.PgError); errors.As(err, &pgerr) && pgerr.Code == pgerrcode.UniqueViolation {
			return 0, ErrConflict
		}
		if err != nil {
			return 0, fmt.Errorf("store: insert %s: %w", doc.ID, err)
		}
		return 1, nil
	}
	var rev int64
	err := s.db.QueryRow(ctx,
		`UPDATE `+s.table+` SET rev = rev + 1, kind = $3, deleted = $4, body = $5, updated_at = now()
		 WHERE id = $1 AND rev = $2 RETURNING rev`,
		doc.ID, doc.Rev, doc.Kind, doc.Deleted, doc.Body,
	).Scan(&rev)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrConflict
	}
	if err != nil {
		return 0, fmt.Errorf("store: update %s: %w", doc.ID, err)
	}
	return rev, nil
}

func (s *PGStore) rev(ctx context.Context, id string) (int64, error) {
	var rev int64
	err := s.db.QueryRow(ctx, `SELECT rev FROM `+s.table+` WHERE id = $1`, id).Scan(&rev)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: get %s: %w", id, err)
	}
	return rev, nil
}
