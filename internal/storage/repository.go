package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")

	// ErrBadNetworkName indicates a network name unusable as a table suffix.
	ErrBadNetworkName = errors.New("storage: invalid network name")
)

var networkNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

const (
	createRequestsTableSQL = `CREATE TABLE IF NOT EXISTS %s (
        user_id           TEXT PRIMARY KEY,
        last_requested_at BIGINT NOT NULL
    );`

	// Lazy in-place migration: columns added after the first schema revision
	// get defaults so old rows stay valid. Safe to run on every boot.
	addAddressColumnSQL = `ALTER TABLE %s ADD COLUMN IF NOT EXISTS last_address TEXT NOT NULL DEFAULT '';`

	getLastRequestSQL = `SELECT user_id, last_requested_at, last_address FROM %s WHERE user_id = $1;`

	upsertLastRequestSQL = `INSERT INTO %s (user_id, last_requested_at, last_address)
    VALUES ($1, $2, $3)
    ON CONFLICT (user_id) DO UPDATE
    SET last_requested_at = EXCLUDED.last_requested_at,
        last_address      = EXCLUDED.last_address;`

	createParticipationTableSQL = `CREATE TABLE IF NOT EXISTS participation_samples (
        network       TEXT NOT NULL,
        epoch         BIGINT NOT NULL,
        current_rate  NUMERIC NOT NULL,
        previous_rate NUMERIC NOT NULL,
        taken_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
        PRIMARY KEY (network, epoch)
    );`

	insertParticipationSampleSQL = `INSERT INTO participation_samples (
        network, epoch, current_rate, previous_rate, taken_at
    ) VALUES ($1,$2,$3,$4,$5)
    ON CONFLICT (network, epoch) DO UPDATE
    SET current_rate  = EXCLUDED.current_rate,
        previous_rate = EXCLUDED.previous_rate,
        taken_at      = EXCLUDED.taken_at;`

	listRecentParticipationSQL = `SELECT network, epoch, current_rate, previous_rate, taken_at
    FROM participation_samples
    WHERE network = $1
    ORDER BY epoch DESC
    LIMIT $2;`

	listParticipationBetweenSQL = `SELECT network, epoch, current_rate, previous_rate, taken_at
    FROM participation_samples
    WHERE network = $1
      AND taken_at >= $2
      AND taken_at < $3
    ORDER BY epoch;`
)

// RequestStore defines the rate-limit record operations.
type RequestStore interface {
	GetLastRequest(ctx context.Context, network, userID string) (*LastRequestRecord, error)
	UpsertLastRequest(ctx context.Context, network, userID, address string, now time.Time) error
}

// ParticipationStore defines participation history persistence.
type ParticipationStore interface {
	InsertParticipationSample(ctx context.Context, sample ParticipationSample) error
	ListRecentParticipationSamples(ctx context.Context, network string, limit int) ([]ParticipationSample, error)
	ListParticipationSamplesBetween(ctx context.Context, network string, from, to time.Time) ([]ParticipationSample, error)
}

// Store aggregates access to request records and participation history.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// Migrate creates and upgrades every configured table in place.
func (s *Store) Migrate(ctx context.Context, networks []string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	for _, network := range networks {
		table, err := requestsTableName(network)
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, fmt.Sprintf(createRequestsTableSQL, table)); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
		if _, err := pool.Exec(ctx, fmt.Sprintf(addAddressColumnSQL, table)); err != nil {
			return fmt.Errorf("migrate table %s: %w", table, err)
		}
	}

	if _, err := pool.Exec(ctx, createParticipationTableSQL); err != nil {
		return fmt.Errorf("create participation_samples: %w", err)
	}

	return nil
}

// GetLastRequest fetches the record for (network, user), nil when absent.
func (s *Store) GetLastRequest(ctx context.Context, network, userID string) (*LastRequestRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	table, err := requestsTableName(network)
	if err != nil {
		return nil, err
	}

	var record LastRequestRecord
	row := pool.QueryRow(ctx, fmt.Sprintf(getLastRequestSQL, table), userID)
	if err := row.Scan(&record.UserID, &record.LastRequestedAt, &record.LastAddress); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get last request: %w", err)
	}

	return &record, nil
}

// UpsertLastRequest inserts or updates the record for (network, user).
func (s *Store) UpsertLastRequest(ctx context.Context, network, userID, address string, now time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	table, err := requestsTableName(network)
	if err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, fmt.Sprintf(upsertLastRequestSQL, table), userID, now.UTC().Unix(), address); err != nil {
		return fmt.Errorf("upsert last request: %w", err)
	}
	return nil
}

// InsertParticipationSample persists or updates one per-epoch sample.
func (s *Store) InsertParticipationSample(ctx context.Context, sample ParticipationSample) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, insertParticipationSampleSQL,
		sample.Network, int64(sample.Epoch), sample.CurrentRate, sample.PreviousRate, sample.TakenAt.UTC()); err != nil {
		return fmt.Errorf("insert participation sample: %w", err)
	}
	return nil
}

// ListRecentParticipationSamples returns the newest samples first.
func (s *Store) ListRecentParticipationSamples(ctx context.Context, network string, limit int) ([]ParticipationSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, listRecentParticipationSQL, network, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent participation samples: %w", err)
	}
	defer rows.Close()

	return scanParticipationSamples(rows)
}

// ListParticipationSamplesBetween returns samples in [from, to) ordered by epoch.
func (s *Store) ListParticipationSamplesBetween(ctx context.Context, network string, from, to time.Time) ([]ParticipationSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, listParticipationBetweenSQL, network, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("list participation samples: %w", err)
	}
	defer rows.Close()

	return scanParticipationSamples(rows)
}

func scanParticipationSamples(rows pgx.Rows) ([]ParticipationSample, error) {
	var samples []ParticipationSample
	for rows.Next() {
		var sample ParticipationSample
		var epoch int64
		if err := rows.Scan(&sample.Network, &epoch, &sample.CurrentRate, &sample.PreviousRate, &sample.TakenAt); err != nil {
			return nil, fmt.Errorf("scan participation sample: %w", err)
		}
		sample.Epoch = uint64(epoch)
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// requestsTableName derives the per-network table identifier. Network names
// come from operator configuration, not user input, but they still pass
// through an identifier whitelist before being spliced into SQL.
func requestsTableName(network string) (string, error) {
	if !networkNameRe.MatchString(network) {
		return "", fmt.Errorf("%w: %q", ErrBadNetworkName, network)
	}
	return "faucet_requests_" + network, nil
}

var (
	_ RequestStore       = (*Store)(nil)
	_ ParticipationStore = (*Store)(nil)
)
