package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/mowthos/cluster-engine/internal/db"
	"github.com/mowthos/cluster-engine/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// seq is the registration sequence: a timestamp tie falls back to it, never
// to random UUID order.
const postgresMigration = `
CREATE TABLE IF NOT EXISTS host_homes (
	seq        BIGSERIAL UNIQUE,
	id         UUID PRIMARY KEY,
	address    TEXT NOT NULL,
	city       TEXT NOT NULL,
	state      TEXT NOT NULL,
	latitude   DOUBLE PRECISION NOT NULL,
	longitude  DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS neighbor_homes (
	seq        BIGSERIAL UNIQUE,
	id         UUID PRIMARY KEY,
	address    TEXT NOT NULL,
	city       TEXT NOT NULL,
	state      TEXT NOT NULL,
	latitude   DOUBLE PRECISION NOT NULL,
	longitude  DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_host_homes_city_state ON host_homes(city, state);
CREATE INDEX IF NOT EXISTS idx_neighbor_homes_city_state ON neighbor_homes(city, state);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ListHosts(ctx context.Context) ([]model.AddressRecord, error) {
	return s.list(ctx, "host_homes")
}

func (s *PostgresStore) ListNeighbors(ctx context.Context) ([]model.AddressRecord, error) {
	return s.list(ctx, "neighbor_homes")
}

func (s *PostgresStore) AppendHost(ctx context.Context, rec model.AddressRecord) (*model.AddressRecord, error) {
	return s.append(ctx, "host_homes", rec)
}

func (s *PostgresStore) AppendNeighbor(ctx context.Context, rec model.AddressRecord) (*model.AddressRecord, error) {
	return s.append(ctx, "neighbor_homes", rec)
}

// list returns records in registration order (the seq sequence).
func (s *PostgresStore) list(ctx context.Context, table string) ([]model.AddressRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, address, city, state, latitude, longitude FROM `+table+` ORDER BY seq`,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list %s", table)
	}
	defer rows.Close()

	var records []model.AddressRecord
	for rows.Next() {
		var r model.AddressRecord
		if err := rows.Scan(&r.ID, &r.Address, &r.City, &r.State, &r.Latitude, &r.Longitude); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s row", table)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "postgres: iterate %s rows", table)
	}
	return records, nil
}

func (s *PostgresStore) append(ctx context.Context, table string, rec model.AddressRecord) (*model.AddressRecord, error) {
	rec.ID = uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+table+` (id, address, city, state, latitude, longitude) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.Address, rec.City, rec.State, rec.Latitude, rec.Longitude,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert into %s", table)
	}
	return &rec, nil
}
