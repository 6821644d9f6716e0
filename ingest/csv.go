package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/aphros-lab/gfp-gaussian/lineage"
)

// LoadCells parses a MOMA-style CSV of per-timepoint measurements into a
// lineage.Tree, grouping consecutive rows that share the same cell ID
// (rows for one cell are expected contiguous) and linking the resulting
// cells into a genealogy via lineage.Tree.BuildGenealogy. It returns any
// non-fatal warnings BuildGenealogy produced (e.g. a dropped third
// daughter).
func LoadCells(path string, cfg ColumnConfig) (*lineage.Tree, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: LoadCells: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if len(cfg.Delimiter) == 1 {
		r.Comma = rune(cfg.Delimiter[0])
	}
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: LoadCells: reading header: %w", err)
	}
	idx, err := headerIndex(header, cfg)
	if err != nil {
		return nil, nil, err
	}

	tree := lineage.NewTree()
	cellIdx := make(map[string]int)

	for lineNo := 2; ; lineNo++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("ingest: LoadCells: line %d: %w", lineNo, err)
		}

		cellID := row[idx.cell]
		ci, ok := cellIdx[cellID]
		if !ok {
			parentID, err := composeParentID(row, idx)
			if err != nil {
				return nil, nil, fmt.Errorf("ingest: LoadCells: line %d: %w", lineNo, err)
			}
			ci = tree.AddCell(lineage.NewCell(cellID, parentID))
			cellIdx[cellID] = ci
		}

		t, err := strconv.ParseFloat(row[idx.time], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("ingest: LoadCells: line %d: time: %w", lineNo, err)
		}
		x, err := strconv.ParseFloat(row[idx.length], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("ingest: LoadCells: line %d: length: %w", lineNo, err)
		}
		if !cfg.LengthIsLog {
			if x <= 0 {
				return nil, nil, fmt.Errorf("ingest: LoadCells: line %d: length must be positive before log transform, got %v", lineNo, x)
			}
			x = math.Log(x)
		}
		g, err := strconv.ParseFloat(row[idx.fp], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("ingest: LoadCells: line %d: fp: %w", lineNo, err)
		}

		c := tree.Cells[ci]
		c.Times = append(c.Times, t)
		c.X = append(c.X, x)
		c.G = append(c.G, g)
	}

	warnings := tree.BuildGenealogy()
	return tree, warnings, nil
}

type columnIndex struct {
	cell, date, pos, gl, parentID int
	time, length, fp              int
}

func headerIndex(header []string, cfg ColumnConfig) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[h] = i
	}
	find := func(name string) (int, error) {
		i, ok := pos[name]
		if !ok {
			return 0, fmt.Errorf("ingest: LoadCells: missing column %q", name)
		}
		return i, nil
	}

	var idx columnIndex
	var err error
	for _, f := range []struct {
		name string
		dst  *int
	}{
		{cfg.CellCol, &idx.cell},
		{cfg.DateCol, &idx.date},
		{cfg.PosCol, &idx.pos},
		{cfg.GlCol, &idx.gl},
		{cfg.ParentIDCol, &idx.parentID},
		{cfg.TimeCol, &idx.time},
		{cfg.LengthCol, &idx.length},
		{cfg.FPCol, &idx.fp},
	} {
		*f.dst, err = find(f.name)
		if err != nil {
			return columnIndex{}, err
		}
	}
	return idx, nil
}

// composeParentID builds the "{date}.{pos}.{gl}.{parent_id}" string that
// a row's parent cell's own ID is expected to match, since the "cell"
// column already stores IDs pre-composed the same way. The integer cast
// strips the decimal formatting some data sources carry ("124.0" reads
// as 124).
func composeParentID(row []string, idx columnIndex) (string, error) {
	parentNum, err := leadingInt(row[idx.parentID])
	if err != nil {
		return "", fmt.Errorf("parent_id: %w", err)
	}
	return fmt.Sprintf("%s.%s.%s.%d", row[idx.date], row[idx.pos], row[idx.gl], parentNum), nil
}

// leadingInt parses the integer prefix of s and stops at the first
// non-digit, so a trailing fractional part is truncated rather than an
// error.
func leadingInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	j := i
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	if j == i {
		return 0, fmt.Errorf("no integer prefix in %q", s)
	}
	return strconv.Atoi(s[:j])
}
