package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	apperrors "intake/internal/errors"
	"intake/internal/model"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS extraction_logs (
	id          BIGSERIAL PRIMARY KEY,
	kind        TEXT NOT NULL,
	provider    TEXT NOT NULL,
	message     TEXT NOT NULL,
	response    TEXT NOT NULL,
	embedding   vector,
	action      TEXT,
	acted_at    TIMESTAMPTZ,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS reconciliation_logs (
	id              BIGSERIAL PRIMARY KEY,
	session_id      TEXT,
	kind            TEXT NOT NULL,
	raw             TEXT NOT NULL,
	unfilled_fields JSONB NOT NULL,
	unfilled_count  INT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS submission_logs (
	id          BIGSERIAL PRIMARY KEY,
	session_id  TEXT,
	kind        TEXT NOT NULL,
	payload     JSONB,
	succeeded   BOOLEAN NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// PostgresRepository stores the audit trail of extractions, reconciliations
// and submissions
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	// Disable prepared statement caching to avoid "unnamed prepared statement does not exist" errors
	if !strings.Contains(dsn, "?") {
		dsn += "?prefer_simple_protocol=true"
	} else {
		dsn += "&prefer_simple_protocol=true"
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// NewWithDB wraps an open connection
func NewWithDB(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// EnsureSchema creates the audit tables when missing
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// LogExtraction stores an extraction and returns its id. embedding may be nil.
func (r *PostgresRepository) LogExtraction(ctx context.Context, entry *model.ExtractionLog, embedding []float32) (int64, error) {
	var vec any
	if len(embedding) > 0 {
		vec = pgvector.NewVector(embedding)
	}
	query := `
		INSERT INTO extraction_logs (kind, provider, message, response, embedding)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	row := r.db.QueryRowxContext(ctx, query, entry.Kind, entry.Provider, entry.Message, entry.Response, vec)
	if err := row.Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return 0, fmt.Errorf("failed to log extraction: %w", err)
	}
	return entry.ID, nil
}

// GetExtraction retrieves a single extraction by id
func (r *PostgresRepository) GetExtraction(ctx context.Context, id int64) (*model.ExtractionLog, error) {
	var entry model.ExtractionLog
	query := `
		SELECT id, kind, provider, message, response, action, created_at
		FROM extraction_logs
		WHERE id = $1
	`
	err := r.db.GetContext(ctx, &entry, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("extraction", fmt.Sprint(id))
		}
		return nil, fmt.Errorf("failed to get extraction: %w", err)
	}
	return &entry, nil
}

// FindSimilar returns the stored extractions nearest to embedding by cosine distance
func (r *PostgresRepository) FindSimilar(ctx context.Context, embedding []float32, limit int) ([]model.ExtractionLog, error) {
	query := `
		SELECT id, kind, provider, message, response, action, created_at,
			embedding <=> $1 AS distance
		FROM extraction_logs
		WHERE embedding IS NOT NULL
		ORDER BY distance
		LIMIT $2
	`
	var entries []model.ExtractionLog
	if err := r.db.SelectContext(ctx, &entries, query, pgvector.NewVector(embedding), limit); err != nil {
		return nil, fmt.Errorf("failed to find similar extractions: %w", err)
	}
	return entries, nil
}

// ExtractionsMissingEmbedding lists extractions stored without an embedding, oldest first
func (r *PostgresRepository) ExtractionsMissingEmbedding(ctx context.Context, limit int) ([]model.ExtractionLog, error) {
	query := `
		SELECT id, kind, provider, message, response, action, created_at
		FROM extraction_logs
		WHERE embedding IS NULL
		ORDER BY id
		LIMIT $1
	`
	var entries []model.ExtractionLog
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list extractions: %w", err)
	}
	return entries, nil
}

// BatchUpdateEmbeddings stores embeddings for several extractions in one transaction
func (r *PostgresRepository) BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	success := 0
	var errs []string

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		errs = append(errs, fmt.Sprintf("failed to start transaction: %v", err))
		return success, errs
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `UPDATE extraction_logs SET embedding = $1 WHERE id = $2`)
	if err != nil {
		errs = append(errs, fmt.Sprintf("failed to prepare statement: %v", err))
		return success, errs
	}
	defer stmt.Close()

	for _, item := range items {
		vec := pgvector.NewVector(item.Embedding)
		if _, err := stmt.ExecContext(ctx, vec, item.ExtractionID); err != nil {
			errs = append(errs, fmt.Sprintf("extraction %d: %v", item.ExtractionID, err))
			continue
		}
		success++
	}

	if err := tx.Commit(); err != nil {
		errs = append(errs, fmt.Sprintf("failed to commit transaction: %v", err))
		return 0, errs
	}

	return success, errs
}

// RecordAction stores what staff did with an extraction
func (r *PostgresRepository) RecordAction(ctx context.Context, extractionID int64, action model.ExtractionAction) error {
	query := `
		UPDATE extraction_logs
		SET action = $2, acted_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, extractionID, string(action))
	if err != nil {
		return fmt.Errorf("failed to record action: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewNotFoundError("extraction", fmt.Sprint(extractionID))
	}
	return nil
}

// LogReconciliation stores one engine run
func (r *PostgresRepository) LogReconciliation(ctx context.Context, entry *model.ReconciliationLog) error {
	query := `
		INSERT INTO reconciliation_logs (session_id, kind, raw, unfilled_fields, unfilled_count)
		VALUES (:session_id, :kind, :raw, :unfilled_fields, :unfilled_count)
	`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("failed to log reconciliation: %w", err)
	}
	return nil
}

// LogSubmission stores one save attempt
func (r *PostgresRepository) LogSubmission(ctx context.Context, entry *model.SubmissionLog) error {
	query := `
		INSERT INTO submission_logs (session_id, kind, payload, succeeded, error)
		VALUES (:session_id, :kind, :payload, :succeeded, :error)
	`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("failed to log submission: %w", err)
	}
	return nil
}

// RecentSubmissions lists the latest save attempts, newest first
func (r *PostgresRepository) RecentSubmissions(ctx context.Context, limit int) ([]model.SubmissionLog, error) {
	query := `
		SELECT id, COALESCE(session_id, '') AS session_id, kind, payload, succeeded, error, created_at
		FROM submission_logs
		ORDER BY created_at DESC
		LIMIT $1
	`
	var entries []model.SubmissionLog
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return entries, nil
}
