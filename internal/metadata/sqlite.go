package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pxs/internal/metadata/migrations"
	"pxs/internal/model"
	"pxs/internal/px"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const selectColumns = "id, name, size, mime_type, ext, created_at, encrypted"

// SQLiteMetadataStore keeps attachment records in a SQLite table, one row
// per record, ordered by insertion.
type SQLiteMetadataStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteMetadataStore opens the database at path, or ":memory:".
// Call Initialize to apply the schema.
func NewSQLiteMetadataStore(path string) (*SQLiteMetadataStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteMetadataStore{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection.
// path can be a file path or ":memory:".
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

// Initialize applies pending migrations and verifies the schema version.
func (s *SQLiteMetadataStore) Initialize() error {
	if err := migrations.MigrateUp(s.db); err != nil {
		return fmt.Errorf("migrating metadata database: %w", err)
	}
	if err := migrations.CheckStatus(s.db); err != nil {
		return fmt.Errorf("checking metadata database: %w", err)
	}
	return nil
}

func (s *SQLiteMetadataStore) Insert(rec *model.AttachmentRecord) error {
	_, err := s.db.ExecContext(context.Background(),
		"INSERT INTO attachments (id, name, size, mime_type, ext, created_at, encrypted) VALUES (?, ?, ?, ?, ?, ?, ?)",
		rec.ID, rec.Name, rec.Size, rec.MimeType, rec.Ext, rec.CreatedAt, rec.Encrypted,
	)
	if err != nil {
		return fmt.Errorf("inserting attachment %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLiteMetadataStore) FindOne(q px.Query) (*model.AttachmentRecord, error) {
	where, args := whereClause(q)
	row := s.db.QueryRowContext(context.Background(),
		"SELECT "+selectColumns+" FROM attachments"+where+" ORDER BY seq LIMIT 1", args...)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding attachment: %w", err)
	}
	return rec, nil
}

func (s *SQLiteMetadataStore) FindMany(q px.Query) ([]*model.AttachmentRecord, error) {
	where, args := whereClause(q)
	rows, err := s.db.QueryContext(context.Background(),
		"SELECT "+selectColumns+" FROM attachments"+where+" ORDER BY seq", args...)
	if err != nil {
		return nil, fmt.Errorf("finding attachments: %w", err)
	}
	defer rows.Close()

	var out []*model.AttachmentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning attachment: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating attachments: %w", err)
	}
	return out, nil
}

func (s *SQLiteMetadataStore) Delete(q px.Query) (int, error) {
	where, args := whereClause(q)
	res, err := s.db.ExecContext(context.Background(), "DELETE FROM attachments"+where, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting attachments: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted attachments: %w", err)
	}
	return int(n), nil
}

// Close closes the database connection.
func (s *SQLiteMetadataStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying connection.
func (s *SQLiteMetadataStore) DB() *sql.DB {
	return s.db
}

func whereClause(q px.Query) (string, []any) {
	var conds []string
	var args []any
	if q.HasID() {
		conds = append(conds, "id = ?")
		args = append(args, q.ID)
	}
	if q.CreatedBefore > 0 {
		conds = append(conds, "created_at < ?")
		args = append(args, q.CreatedBefore)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(r rowScanner) (*model.AttachmentRecord, error) {
	var rec model.AttachmentRecord
	if err := r.Scan(&rec.ID, &rec.Name, &rec.Size, &rec.MimeType, &rec.Ext, &rec.CreatedAt, &rec.Encrypted); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Compile-time check that SQLiteMetadataStore implements px.MetadataStore
var _ px.MetadataStore = (*SQLiteMetadataStore)(nil)
