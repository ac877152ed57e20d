package blobstore

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/savegamesync/internal/common"
	"github.com/dmitrijs2005/savegamesync/internal/dbx"
	"github.com/dmitrijs2005/savegamesync/internal/models"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

//go:embed migrations/*.sql
var migrations embed.FS

// RunMigrations brings the blob schema up to date.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, "migrations")
}

// SQLiteStore keeps blobs in a local SQLite file. It behaves like a cloud
// drive's app folder: ids are random, names may repeat.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at dsn and migrates it.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// one writer at a time; SQLite would answer SQLITE_BUSY otherwise
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite %s: %w", dsn, err)
	}

	return NewSQLiteStore(db), nil
}

// NewSQLiteStore wraps an already migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListByName(ctx context.Context, name string) ([]models.Blob, error) {
	query := `select id, name, size from blobs where name=? order by created_at, rowid`
	blobs, err := s.query(ctx, query, name)
	return blobs, common.NewStoreError("list", name, err)
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]models.Blob, error) {
	query := `select id, name, size from blobs order by name, rowid`
	blobs, err := s.query(ctx, query)
	return blobs, common.NewStoreError("list", "", err)
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]models.Blob, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error selecting blobs: %w", err)
	}
	defer rows.Close()

	result := make([]models.Blob, 0)
	for rows.Next() {
		var b models.Blob
		if err := rows.Scan(&b.ID, &b.Name, &b.Size); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *SQLiteStore) Create(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", common.NewStoreError("create", name, errors.New("empty blob name"))
	}
	id := uuid.NewString()

	query := `insert into blobs (id, name, size, data) values (?, ?, 0, x'')`
	if _, err := s.db.ExecContext(ctx, query, id, name); err != nil {
		return "", common.NewStoreError("create", name, fmt.Errorf("failed to insert blob: %w", err))
	}
	return id, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `delete from blobs where id=?`, id)
	if err != nil {
		return common.NewStoreError("delete", id, fmt.Errorf("failed to delete blob: %w", err))
	}
	return common.NewStoreError("delete", id, expectOne(result, id))
}

func (s *SQLiteStore) Upload(ctx context.Context, id string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return common.NewStoreError("upload", id, err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `update blobs set data=?, size=?, updated_at=CURRENT_TIMESTAMP where id=?`
		result, err := tx.ExecContext(ctx, query, data, len(data), id)
		if err != nil {
			return fmt.Errorf("failed to update blob: %w", err)
		}
		return expectOne(result, id)
	})
	return common.NewStoreError("upload", id, err)
}

func (s *SQLiteStore) Download(ctx context.Context, id string, w io.Writer) error {
	var data []byte
	err := s.db.QueryRowContext(ctx, `select data from blobs where id=?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return common.NewStoreError("download", id, fmt.Errorf("%w: %s", common.ErrBlobNotFound, id))
	}
	if err != nil {
		return common.NewStoreError("download", id, err)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return common.NewStoreError("download", id, err)
	}
	return nil
}

func expectOne(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", common.ErrBlobNotFound, id)
	}
	return nil
}
