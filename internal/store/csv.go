package store

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/mowthos/cluster-engine/internal/model"
)

var csvHeader = []string{"address", "city", "state", "latitude", "longitude"}

// CSVStore keeps each collection in a headered CSV file, appending one row
// per registration. This is the original deployment mode: the files double
// as the operator-visible registry.
type CSVStore struct {
	mu            sync.Mutex
	hostsPath     string
	neighborsPath string
}

// NewCSV creates a CSVStore over the two collection files.
func NewCSV(hostsPath, neighborsPath string) *CSVStore {
	return &CSVStore{hostsPath: hostsPath, neighborsPath: neighborsPath}
}

// Migrate creates the collection files with header rows if absent.
func (s *CSVStore) Migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, path := range []string{s.hostsPath, s.neighborsPath} {
		if err := ensureCSV(path); err != nil {
			return err
		}
	}
	return nil
}

func (s *CSVStore) Close() error { return nil }

func (s *CSVStore) ListHosts(ctx context.Context) ([]model.AddressRecord, error) {
	return s.list(s.hostsPath)
}

func (s *CSVStore) ListNeighbors(ctx context.Context) ([]model.AddressRecord, error) {
	return s.list(s.neighborsPath)
}

func (s *CSVStore) AppendHost(ctx context.Context, rec model.AddressRecord) (*model.AddressRecord, error) {
	return s.append(s.hostsPath, rec)
}

func (s *CSVStore) AppendNeighbor(ctx context.Context, rec model.AddressRecord) (*model.AddressRecord, error) {
	return s.append(s.neighborsPath, rec)
}

// list reads the whole file under the lock so a query sees a snapshot
// consistent at call time even with concurrent appends.
func (s *CSVStore) list(path string) ([]model.AddressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "csv store: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "csv store: read %s", path)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	records := make([]model.AddressRecord, 0, len(rows)-1)
	for i, row := range rows[1:] { // skip header
		if len(row) < 5 {
			return nil, eris.Errorf("csv store: %s row %d has %d fields, want 5", path, i+2, len(row))
		}
		lat, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "csv store: %s row %d latitude", path, i+2)
		}
		lon, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, eris.Wrapf(err, "csv store: %s row %d longitude", path, i+2)
		}
		records = append(records, model.AddressRecord{
			Address:   row[0],
			City:      row[1],
			State:     row[2],
			Latitude:  lat,
			Longitude: lon,
		})
	}
	return records, nil
}

func (s *CSVStore) append(path string, rec model.AddressRecord) (*model.AddressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ensureCSV(path); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, eris.Wrapf(err, "csv store: open %s for append", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		rec.Address,
		rec.City,
		rec.State,
		strconv.FormatFloat(rec.Latitude, 'f', -1, 64),
		strconv.FormatFloat(rec.Longitude, 'f', -1, 64),
	}); err != nil {
		return nil, eris.Wrapf(err, "csv store: write %s", path)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, eris.Wrapf(err, "csv store: flush %s", path)
	}
	return &rec, nil
}

func ensureCSV(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return eris.Wrapf(err, "csv store: stat %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "csv store: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return eris.Wrapf(err, "csv store: write header %s", path)
	}
	w.Flush()
	return eris.Wrapf(w.Error(), "csv store: flush header %s", path)
}
