package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"textpdf/internal/domain"
)

const schemaDDL = `CREATE TABLE IF NOT EXISTS documents (
	id UUID PRIMARY KEY,
	input_text TEXT NOT NULL,
	input_language TEXT NOT NULL CHECK (input_language IN ('english', 'hinglish', 'hindi')),
	translated_text TEXT NOT NULL DEFAULT '',
	header_text TEXT NOT NULL DEFAULT '',
	footer_text TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const indexDDL = `CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents (created_at DESC);`

const selectColumns = `id::text, input_text, input_language, translated_text, header_text, footer_text, created_at, updated_at`

// DefaultListLimit caps List when the caller passes no limit.
const DefaultListLimit = 100

// DocumentRepository persists domain.Document records.
type DocumentRepository struct {
	DB  *DB
	DSN string

	now func() time.Time
}

// NewDocumentRepository creates a repository over dsn.
func NewDocumentRepository(db *DB, dsn string) *DocumentRepository {
	return &DocumentRepository{DB: db, DSN: dsn}
}

func (r *DocumentRepository) conn() (*sql.DB, error) {
	if r.DB == nil || r.DSN == "" {
		return nil, errors.New("document store is not configured")
	}
	return r.DB.Get(r.DSN)
}

func (r *DocumentRepository) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now().UTC()
}

// Ping reports whether the document database is reachable.
func (r *DocumentRepository) Ping(ctx context.Context) error {
	if r.DB == nil || r.DSN == "" {
		return errors.New("document store is not configured")
	}
	return r.DB.Ping(ctx, r.DSN)
}

// EnsureSchema creates the documents table and its index if missing.
func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	db, err := r.conn()
	if err != nil {
		return err
	}
	for _, ddl := range []string{schemaDDL, indexDDL} {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensure documents schema: %w", err)
		}
	}
	return nil
}

// Create validates and inserts a new document.
func (r *DocumentRepository) Create(ctx context.Context, data domain.DocumentData) (domain.Document, error) {
	if err := data.Validate(); err != nil {
		return domain.Document{}, err
	}
	db, err := r.conn()
	if err != nil {
		return domain.Document{}, err
	}

	now := r.clock()
	doc := domain.Document{ID: uuid.NewString(), DocumentData: data, CreatedAt: now, UpdatedAt: now}
	_, err = db.ExecContext(ctx,
		`INSERT INTO documents (id, input_text, input_language, translated_text, header_text, footer_text, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		doc.ID, data.InputText, data.InputLanguage, data.TranslatedText, data.HeaderText, data.FooterText, now, now,
	)
	if err != nil {
		return domain.Document{}, fmt.Errorf("insert document: %w", err)
	}
	return doc, nil
}

// List returns documents newest first.
func (r *DocumentRepository) List(ctx context.Context, limit int) ([]domain.Document, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	db, err := r.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM documents ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

// Get loads one document by id.
func (r *DocumentRepository) Get(ctx context.Context, id string) (domain.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	db, err := r.conn()
	if err != nil {
		return domain.Document{}, err
	}

	row := db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	return doc, err
}

// Update applies the non-nil fields of patch and returns the stored record.
func (r *DocumentRepository) Update(ctx context.Context, id string, patch domain.DocumentPatch) (domain.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	if err := patch.Validate(); err != nil {
		return domain.Document{}, err
	}
	db, err := r.conn()
	if err != nil {
		return domain.Document{}, err
	}

	var (
		sets []string
		args []any
	)
	add := func(col string, v *string) {
		if v == nil {
			return
		}
		args = append(args, *v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("input_text", patch.InputText)
	add("input_language", patch.InputLanguage)
	add("translated_text", patch.TranslatedText)
	add("header_text", patch.HeaderText)
	add("footer_text", patch.FooterText)
	args = append(args, r.clock())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id)

	query := fmt.Sprintf("UPDATE documents SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.Document{}, fmt.Errorf("update document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	return r.Get(ctx, id)
}

// Delete removes a document.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrDocumentNotFound
	}
	db, err := r.conn()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (domain.Document, error) {
	var d domain.Document
	err := s.Scan(&d.ID, &d.InputText, &d.InputLanguage, &d.TranslatedText,
		&d.HeaderText, &d.FooterText, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, err
		}
		return d, fmt.Errorf("scan document: %w", err)
	}
	return d, nil
}
