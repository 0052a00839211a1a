package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wardwatch-systems/wardwatch/internal/models"
)

const defaultListLimit = 500

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Save inserts alerts one row at a time with conflict-ignoring
// semantics on the dedup key. A failed row stops the batch but keeps
// everything already written; the caller may retry the remainder. The
// count reflects rows actually inserted, so re-saving an already
// persisted batch returns 0.
func (r *PostgresRepository) Save(ctx context.Context, alerts []*models.ThreatAlert) (int, error) {
	query := `
		INSERT INTO threat_alerts
			(id, system_id, system_name, category, severity, description,
			 source_record_id, source_timestamp, resolved, dedup_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (dedup_key) DO NOTHING
	`

	saved := 0
	for i, a := range alerts {
		tag, err := r.pool.Exec(ctx, query,
			a.ID, a.SystemID, a.SystemName, a.Category, a.Severity, a.Description,
			a.SourceRecordID, a.SourceTimestamp, a.Resolved, a.DedupKey, a.CreatedAt,
		)
		if err != nil {
			return saved, fmt.Errorf("failed to save alert %d of %d: %w", i+1, len(alerts), err)
		}
		saved += int(tag.RowsAffected())
	}

	return saved, nil
}

// List retrieves alerts matching the filter, newest first by source
// timestamp.
func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]*models.ThreatAlert, error) {
	whereClause := "WHERE 1=1"
	args := []interface{}{}
	argPos := 1

	if filter.Severity != "" {
		whereClause += fmt.Sprintf(" AND severity = $%d", argPos)
		args = append(args, filter.Severity)
		argPos++
	}
	if filter.SystemID != "" {
		whereClause += fmt.Sprintf(" AND system_id = $%d", argPos)
		args = append(args, filter.SystemID)
		argPos++
	}
	if !filter.Since.IsZero() {
		whereClause += fmt.Sprintf(" AND source_timestamp >= $%d", argPos)
		args = append(args, filter.Since)
		argPos++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, system_id, system_name, category, severity, description,
		       source_record_id, source_timestamp, resolved, dedup_key, created_at
		FROM threat_alerts
		%s
		ORDER BY source_timestamp DESC
		LIMIT $%d
	`, whereClause, argPos)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*models.ThreatAlert{}
	for rows.Next() {
		a := &models.ThreatAlert{}
		if err := rows.Scan(
			&a.ID, &a.SystemID, &a.SystemName, &a.Category, &a.Severity, &a.Description,
			&a.SourceRecordID, &a.SourceTimestamp, &a.Resolved, &a.DedupKey, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return alerts, nil
}

// Resolve marks an alert resolved. The flag is owned by downstream
// workflow; the pipeline itself never flips it.
func (r *PostgresRepository) Resolve(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `UPDATE threat_alerts SET resolved = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// GetByID retrieves a single alert.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.ThreatAlert, error) {
	query := `
		SELECT id, system_id, system_name, category, severity, description,
		       source_record_id, source_timestamp, resolved, dedup_key, created_at
		FROM threat_alerts
		WHERE id = $1
	`

	a := &models.ThreatAlert{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.SystemID, &a.SystemName, &a.Category, &a.Severity, &a.Description,
		&a.SourceRecordID, &a.SourceTimestamp, &a.Resolved, &a.DedupKey, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	return a, nil
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
