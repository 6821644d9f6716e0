// Package ingest reads a MOMA-style CSV of per-timepoint cell
// measurements into a lineage.Tree, and parses the parameter bounds
// file format.
package ingest

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ColumnConfig names the CSV columns LoadCells reads from, defaulting to
// the standard MOMA layout ("cell", "date", "pos", "gl", "parent_id",
// plus the time/length/fp measurement columns). LengthIsLog marks the
// length column as already log-transformed; when false, LoadCells takes
// the log itself and rejects non-positive lengths.
type ColumnConfig struct {
	Delimiter string

	CellCol     string
	DateCol     string
	PosCol      string
	GlCol       string
	ParentIDCol string

	TimeCol     string
	LengthCol   string
	LengthIsLog bool
	FPCol       string
}

// DefaultColumnConfig returns the standard MOMA header keys.
func DefaultColumnConfig() ColumnConfig {
	return ColumnConfig{
		Delimiter:   ",",
		CellCol:     "cell",
		DateCol:     "date",
		PosCol:      "pos",
		GlCol:       "gl",
		ParentIDCol: "parent_id",
		TimeCol:     "time_sec",
		LengthCol:   "length_um",
		FPCol:       "fp",
	}
}

// columnConfigKeys maps a "key = value" csv_config file's recognized
// keys to the ColumnConfig field they set, the format the -c/--csv_config
// flag reads, mirroring LoadParameters' key=value format for consistency
// with the rest of this package's file formats.
func columnConfigKeys(cfg *ColumnConfig) map[string]*string {
	return map[string]*string{
		"delimiter": &cfg.Delimiter,
		"cell":      &cfg.CellCol,
		"date":      &cfg.DateCol,
		"pos":       &cfg.PosCol,
		"gl":        &cfg.GlCol,
		"parent_id": &cfg.ParentIDCol,
		"time":      &cfg.TimeCol,
		"length":    &cfg.LengthCol,
		"fp":        &cfg.FPCol,
	}
}

// LoadColumnConfig parses a "key = value" csv_config file, starting from
// DefaultColumnConfig and overwriting only the keys present, so a config
// file only needs to mention the columns that differ from the default
// MOMA layout.
func LoadColumnConfig(path string) (ColumnConfig, error) {
	cfg := DefaultColumnConfig()

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("ingest: LoadColumnConfig: %w", err)
	}
	defer f.Close()

	keys := columnConfigKeys(&cfg)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return cfg, fmt.Errorf("ingest: LoadColumnConfig: line %d: missing '='", lineNo)
		}
		key := strings.TrimSpace(line[:eq])
		value := strings.TrimSpace(line[eq+1:])
		if key == "length_islog" {
			b, err := strconv.ParseBool(value)
			if err != nil {
				return cfg, fmt.Errorf("ingest: LoadColumnConfig: line %d: length_islog: %w", lineNo, err)
			}
			cfg.LengthIsLog = b
			continue
		}
		dst, ok := keys[key]
		if !ok {
			return cfg, fmt.Errorf("ingest: LoadColumnConfig: line %d: unrecognized key %q", lineNo, key)
		}
		*dst = value
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("ingest: LoadColumnConfig: %w", err)
	}
	return cfg, nil
}
