package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mowthos/cluster-engine/internal/model"
	"github.com/mowthos/cluster-engine/pkg/geocode"
)

var (
	importCSVPath     string
	importPool        string
	importConcurrency int
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-register homes from a CSV file",
	Long:  "Reads address,city,state[,latitude,longitude] rows, geocodes rows without coordinates, and appends them to the selected collection in file order.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		pool := model.Pool(importPool)
		if pool != model.PoolHosts && pool != model.PoolNeighbors {
			return eris.Errorf("--pool must be %q or %q", model.PoolHosts, model.PoolNeighbors)
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		records, err := readImportCSV(importCSVPath)
		if err != nil {
			return err
		}

		resolved, skipped, err := resolveAll(ctx, env.Geocoder, records, importConcurrency)
		if err != nil {
			return err
		}

		// Appends stay in file order so equidistant candidates later
		// tie-break the way the file listed them.
		for _, rec := range resolved {
			if pool == model.PoolHosts {
				_, err = env.Store.AppendHost(ctx, rec)
			} else {
				_, err = env.Store.AppendNeighbor(ctx, rec)
			}
			if err != nil {
				return eris.Wrapf(err, "import: append %s", rec.FullAddress())
			}
		}

		zap.L().Info("import complete",
			zap.String("csv", importCSVPath),
			zap.String("pool", importPool),
			zap.Int("imported", len(resolved)),
			zap.Int("skipped", skipped),
		)
		return nil
	},
}

// readImportCSV parses the import file. A row whose first cell is the
// literal "address" is treated as the header and skipped.
func readImportCSV(path string) ([]model.AddressRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "import: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var records []model.AddressRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "import: read %s", path)
		}
		if len(row) < 3 {
			return nil, eris.Errorf("import: row needs at least address,city,state: %v", row)
		}
		if row[0] == "address" {
			continue
		}

		rec := model.AddressRecord{Address: row[0], City: row[1], State: row[2]}
		if len(row) >= 5 {
			lat, latErr := strconv.ParseFloat(row[3], 64)
			lon, lonErr := strconv.ParseFloat(row[4], 64)
			if latErr == nil && lonErr == nil {
				rec.Latitude = lat
				rec.Longitude = lon
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// resolveAll geocodes records without coordinates, bounded-concurrently,
// preserving input order. Unresolvable rows are dropped with a warning.
func resolveAll(ctx context.Context, geocoder geocode.Client, records []model.AddressRecord, concurrency int) ([]model.AddressRecord, int, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	matched := make([]bool, len(records))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range records {
		if records[i].HasCoordinates() {
			matched[i] = true
			continue
		}
		g.Go(func() error {
			result, err := geocoder.Geocode(ctx, geocode.AddressInput{
				Street: records[i].Address,
				City:   records[i].City,
				State:  records[i].State,
			})
			if err != nil {
				return eris.Wrapf(err, "import: geocode %s", records[i].FullAddress())
			}
			if !result.Matched {
				zap.L().Warn("import: no geocoding match, skipping row",
					zap.String("address", records[i].FullAddress()),
				)
				return nil
			}
			records[i].Latitude = result.Latitude
			records[i].Longitude = result.Longitude
			matched[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	resolved := make([]model.AddressRecord, 0, len(records))
	skipped := 0
	for i, rec := range records {
		if matched[i] {
			resolved = append(resolved, rec)
		} else {
			skipped++
		}
	}
	return resolved, skipped, nil
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to CSV file (required)")
	importCmd.Flags().StringVar(&importPool, "pool", "neighbors", "target collection: hosts or neighbors")
	importCmd.Flags().IntVar(&importConcurrency, "concurrency", 4, "parallel geocoding requests")
	_ = importCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(importCmd)
}
