package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wardwatch-systems/wardwatch/internal/models"
)

// PostgresRegistry implements Registry using PostgreSQL. Credentials
// are sealed before they reach the database.
type PostgresRegistry struct {
	pool   *pgxpool.Pool
	sealer *CredentialSealer
}

// NewPostgresRegistry creates a new PostgreSQL-backed registry.
func NewPostgresRegistry(ctx context.Context, connString string, sealer *CredentialSealer) (*PostgresRegistry, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if sealer == nil {
		sealer = NewCredentialSealer("")
	}

	return &PostgresRegistry{pool: pool, sealer: sealer}, nil
}

func (r *PostgresRegistry) Register(ctx context.Context, system *models.SystemDescriptor) error {
	sealed, err := r.sealer.Seal(system.Credential)
	if err != nil {
		return fmt.Errorf("failed to seal credential: %w", err)
	}

	query := `
		INSERT INTO systems (id, name, address, credential, type, status, last_sync_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.pool.Exec(ctx, query,
		system.ID, system.Name, system.Address, sealed,
		system.Type, system.Status, system.LastSyncAt, system.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrSystemExists
		}
		return fmt.Errorf("failed to register system: %w", err)
	}

	return nil
}

func (r *PostgresRegistry) Get(ctx context.Context, id string) (*models.SystemDescriptor, error) {
	query := `
		SELECT id, name, address, credential, type, status, last_sync_at, created_at
		FROM systems
		WHERE id = $1
	`

	s := &models.SystemDescriptor{}
	var sealed string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.Name, &s.Address, &sealed, &s.Type, &s.Status, &s.LastSyncAt, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSystemNotFound
		}
		return nil, fmt.Errorf("failed to get system: %w", err)
	}

	s.Credential, err = r.sealer.Open(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential for system %s: %w", id, err)
	}

	return s, nil
}

func (r *PostgresRegistry) List(ctx context.Context) ([]*models.SystemDescriptor, error) {
	query := `
		SELECT id, name, address, credential, type, status, last_sync_at, created_at
		FROM systems
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list systems: %w", err)
	}
	defer rows.Close()

	systems := []*models.SystemDescriptor{}
	for rows.Next() {
		s := &models.SystemDescriptor{}
		var sealed string
		if err := rows.Scan(
			&s.ID, &s.Name, &s.Address, &sealed, &s.Type, &s.Status, &s.LastSyncAt, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan system: %w", err)
		}
		s.Credential, err = r.sealer.Open(sealed)
		if err != nil {
			return nil, fmt.Errorf("failed to open credential for system %s: %w", s.ID, err)
		}
		systems = append(systems, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return systems, nil
}

func (r *PostgresRegistry) RecordSync(ctx context.Context, id string, status string, at time.Time) error {
	if !models.IsValidSystemStatus(status) {
		return fmt.Errorf("invalid system status: %s", status)
	}

	var result pgconn.CommandTag
	var err error
	if status == models.SystemStatusActive {
		result, err = r.pool.Exec(ctx,
			`UPDATE systems SET status = $1, last_sync_at = $2 WHERE id = $3`,
			status, at, id,
		)
	} else {
		// Failed attempts keep the previous last-successful-sync time.
		result, err = r.pool.Exec(ctx,
			`UPDATE systems SET status = $1 WHERE id = $2`,
			status, id,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to record sync: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSystemNotFound
	}
	return nil
}

// Close closes the database connection pool
func (r *PostgresRegistry) Close() error {
	r.pool.Close()
	return nil
}
