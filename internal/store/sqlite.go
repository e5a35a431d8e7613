package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/mowthos/cluster-engine/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// No UNIQUE constraint on (address, city, state): registration is
// append-and-coexist, matching the CSV files this schema replaces.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS host_homes (
	id         TEXT PRIMARY KEY,
	address    TEXT NOT NULL,
	city       TEXT NOT NULL,
	state      TEXT NOT NULL,
	latitude   REAL NOT NULL,
	longitude  REAL NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS neighbor_homes (
	id         TEXT PRIMARY KEY,
	address    TEXT NOT NULL,
	city       TEXT NOT NULL,
	state      TEXT NOT NULL,
	latitude   REAL NOT NULL,
	longitude  REAL NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_host_homes_city_state ON host_homes(city, state);
CREATE INDEX IF NOT EXISTS idx_neighbor_homes_city_state ON neighbor_homes(city, state);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListHosts(ctx context.Context) ([]model.AddressRecord, error) {
	return s.list(ctx, "host_homes")
}

func (s *SQLiteStore) ListNeighbors(ctx context.Context) ([]model.AddressRecord, error) {
	return s.list(ctx, "neighbor_homes")
}

func (s *SQLiteStore) AppendHost(ctx context.Context, rec model.AddressRecord) (*model.AddressRecord, error) {
	return s.append(ctx, "host_homes", rec)
}

func (s *SQLiteStore) AppendNeighbor(ctx context.Context, rec model.AddressRecord) (*model.AddressRecord, error) {
	return s.append(ctx, "neighbor_homes", rec)
}

// list returns records in registration order so downstream stable sorts
// break distance ties by registration order. rowid is the insertion
// sequence; created_at has only second precision and cannot order appends
// within the same second.
func (s *SQLiteStore) list(ctx context.Context, table string) ([]model.AddressRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, address, city, state, latitude, longitude FROM `+table+` ORDER BY rowid`,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list %s", table)
	}
	defer rows.Close() //nolint:errcheck

	var records []model.AddressRecord
	for rows.Next() {
		var r model.AddressRecord
		if err := rows.Scan(&r.ID, &r.Address, &r.City, &r.State, &r.Latitude, &r.Longitude); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s row", table)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "sqlite: iterate %s rows", table)
	}
	return records, nil
}

func (s *SQLiteStore) append(ctx context.Context, table string, rec model.AddressRecord) (*model.AddressRecord, error) {
	rec.ID = uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+table+` (id, address, city, state, latitude, longitude) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Address, rec.City, rec.State, rec.Latitude, rec.Longitude,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert into %s", table)
	}
	return &rec, nil
}
