package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"umlreg/internal/diag"
)

// Origin records where a model declaration came from.
type Origin string

const (
	OriginManifest Origin = "manifest"
	OriginCLI      Origin = "cli"
	OriginAPI      Origin = "api"
)

// ModelMetaData is a persisted model declaration.
type ModelMetaData struct {
	Name          string    `json:"name" yaml:"name"`
	Resource      string    `json:"resource" yaml:"resource"`
	ParserVersion string    `json:"parserVersion" yaml:"parserVersion"`
	Description   string    `json:"description,omitempty" yaml:"description,omitempty"`
	Origin        Origin    `json:"origin" yaml:"origin"`
	CreatedAt     time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// LoadAttempt is the outcome of one parse of a model resource.
type LoadAttempt struct {
	ID            string        `json:"id" yaml:"id"`
	ModelName     string        `json:"modelName" yaml:"modelName"`
	Resource      string        `json:"resource" yaml:"resource"`
	ParserVersion string        `json:"parserVersion" yaml:"parserVersion"`
	Fingerprint   string        `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	StartedAt     time.Time     `json:"startedAt" yaml:"startedAt"`
	Duration      time.Duration `json:"duration" yaml:"duration"`
	Success       bool          `json:"success" yaml:"success"`
	Elements      int           `json:"elements" yaml:"elements"`
	Errors        int           `json:"errors" yaml:"errors"`
	Warnings      int           `json:"warnings" yaml:"warnings"`
	Infos         int           `json:"infos" yaml:"infos"`
	Failure       string        `json:"failure,omitempty" yaml:"failure,omitempty"`
}

// MetaDataRepository provides CRUD operations for the model_metadata table
type MetaDataRepository struct {
	db *DB
}

// NewMetaDataRepository creates a new metadata repository
func NewMetaDataRepository(db *DB) *MetaDataRepository {
	return &MetaDataRepository{db: db}
}

// Save inserts or updates a declaration. CreatedAt is kept on update.
func (r *MetaDataRepository) Save(ctx context.Context, m *ModelMetaData) error {
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	_, err := r.db.exec(ctx, `
		INSERT INTO model_metadata (name, resource, parser_version, description, origin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			resource = excluded.resource,
			parser_version = excluded.parser_version,
			description = excluded.description,
			origin = excluded.origin,
			updated_at = excluded.updated_at
	`,
		m.Name,
		m.Resource,
		m.ParserVersion,
		m.Description,
		string(m.Origin),
		m.CreatedAt.Format(time.RFC3339Nano),
		m.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save model metadata %s: %w", m.Name, err)
	}
	return nil
}

// Get retrieves a declaration by name. It returns nil, nil if none exists.
func (r *MetaDataRepository) Get(ctx context.Context, name string) (*ModelMetaData, error) {
	row := r.db.queryRow(ctx, `
		SELECT name, resource, parser_version, description, origin, created_at, updated_at
		FROM model_metadata
		WHERE name = ?
	`, name)
	m, err := scanMetaData(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model metadata %s: %w", name, err)
	}
	return m, nil
}

// List returns every declaration ordered by name.
func (r *MetaDataRepository) List(ctx context.Context) ([]*ModelMetaData, error) {
	rows, err := r.db.query(ctx, `
		SELECT name, resource, parser_version, description, origin, created_at, updated_at
		FROM model_metadata
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list model metadata: %w", err)
	}
	defer rows.Close()

	var out []*ModelMetaData
	for rows.Next() {
		m, err := scanMetaData(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan model metadata: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes a declaration. Load history is kept.
func (r *MetaDataRepository) Delete(ctx context.Context, name string) (bool, error) {
	res, err := r.db.exec(ctx, "DELETE FROM model_metadata WHERE name = ?", name)
	if err != nil {
		return false, fmt.Errorf("failed to delete model metadata %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMetaData(s scanner) (*ModelMetaData, error) {
	var m ModelMetaData
	var origin, createdAt, updatedAt string
	if err := s.Scan(&m.Name, &m.Resource, &m.ParserVersion, &m.Description, &origin, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	m.Origin = Origin(origin)
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	return &m, nil
}

// AttemptRepository records load attempts and their diagnostics
type AttemptRepository struct {
	db *DB
}

// NewAttemptRepository creates a new attempt repository
func NewAttemptRepository(db *DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Record stores an attempt together with its messages in one transaction.
// An empty ID is replaced by a new UUID.
func (r *AttemptRepository) Record(ctx context.Context, a *LoadAttempt, messages []diag.Message) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.StartedAt.IsZero() {
		a.StartedAt = time.Now().UTC()
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var failure interface{}
		if a.Failure != "" {
			failure = a.Failure
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO load_attempts (
				id, model_name, resource, parser_version, fingerprint, started_at, duration_ms,
				success, elements, errors, warnings, infos, failure
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			a.ID,
			a.ModelName,
			a.Resource,
			a.ParserVersion,
			a.Fingerprint,
			a.StartedAt.UTC().Format(time.RFC3339Nano),
			a.Duration.Milliseconds(),
			boolToInt(a.Success),
			a.Elements,
			a.Errors,
			a.Warnings,
			a.Infos,
			failure,
		)
		if err != nil {
			return fmt.Errorf("failed to record load attempt: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO load_messages (attempt_id, seq, severity, code, element_id, text)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare message insert: %w", err)
		}
		defer stmt.Close()

		for i, m := range messages {
			if _, err := stmt.ExecContext(ctx, a.ID, i, string(m.Severity), m.Code, m.ElementID, m.Text); err != nil {
				return fmt.Errorf("failed to record load message %d: %w", i, err)
			}
		}
		return nil
	})
}

// List returns the most recent attempts of a model, newest first.
// A non-positive limit returns all of them.
func (r *AttemptRepository) List(ctx context.Context, modelName string, limit int) ([]*LoadAttempt, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.query(ctx, `
		SELECT id, model_name, resource, parser_version, fingerprint, started_at, duration_ms,
		       success, elements, errors, warnings, infos, failure
		FROM load_attempts
		WHERE model_name = ?
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, modelName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list load attempts: %w", err)
	}
	defer rows.Close()

	var out []*LoadAttempt
	for rows.Next() {
		var a LoadAttempt
		var startedAt string
		var durationMs int64
		var success int
		var failure sql.NullString
		if err := rows.Scan(&a.ID, &a.ModelName, &a.Resource, &a.ParserVersion, &a.Fingerprint, &startedAt,
			&durationMs, &success, &a.Elements, &a.Errors, &a.Warnings, &a.Infos, &failure); err != nil {
			return nil, fmt.Errorf("failed to scan load attempt: %w", err)
		}
		a.StartedAt = parseTime(startedAt)
		a.Duration = time.Duration(durationMs) * time.Millisecond
		a.Success = success == 1
		a.Failure = failure.String
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Latest returns the newest attempt of a model, or nil.
func (r *AttemptRepository) Latest(ctx context.Context, modelName string) (*LoadAttempt, error) {
	list, err := r.List(ctx, modelName, 1)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

// Messages returns the diagnostics of an attempt in their original order.
func (r *AttemptRepository) Messages(ctx context.Context, attemptID string) ([]diag.Message, error) {
	rows, err := r.db.query(ctx, `
		SELECT severity, code, element_id, text
		FROM load_messages
		WHERE attempt_id = ?
		ORDER BY seq
	`, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list load messages: %w", err)
	}
	defer rows.Close()

	var out []diag.Message
	for rows.Next() {
		var m diag.Message
		var sev string
		if err := rows.Scan(&sev, &m.Code, &m.ElementID, &m.Text); err != nil {
			return nil, fmt.Errorf("failed to scan load message: %w", err)
		}
		m.Severity = diag.Severity(sev)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Prune keeps the newest keep attempts of a model and deletes the rest.
func (r *AttemptRepository) Prune(ctx context.Context, modelName string, keep int) (int64, error) {
	res, err := r.db.exec(ctx, `
		DELETE FROM load_attempts
		WHERE model_name = ? AND id NOT IN (
			SELECT id FROM load_attempts
			WHERE model_name = ?
			ORDER BY started_at DESC, rowid DESC
			LIMIT ?
		)
	`, modelName, modelName, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune load attempts: %w", err)
	}
	return res.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
