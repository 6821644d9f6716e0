package ingest

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cells.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadCellsGroupsContiguousRowsByCellAndComposesParentID(t *testing.T) {
	csv := "cell,date,pos,gl,parent_id,time_sec,length_um,fp\n" +
		"c1,20200101,1,1,0,0,2.0,100\n" +
		"c1,20200101,1,1,0,1,2.2,110\n" +
		"c2,20200101,1,1,3,2,1.1,50\n"
	path := writeTempCSV(t, csv)

	tree, warnings, err := LoadCells(path, DefaultColumnConfig())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, tree.Cells, 2)

	c1 := tree.Cells[0]
	assert.Equal(t, "c1", c1.ID)
	// parent_id=0 composes against the date/pos/gl of this same row; it
	// only resolves to another cell in the tree if some cell's ID equals
	// that composed string.
	assert.Equal(t, "20200101.1.1.0", c1.ParentID)
	assert.Equal(t, []float64{0, 1}, c1.Times)
	// Raw lengths are log-transformed on the way in.
	require.Len(t, c1.X, 2)
	assert.InDelta(t, math.Log(2.0), c1.X[0], 1e-12)
	assert.InDelta(t, math.Log(2.2), c1.X[1], 1e-12)
	assert.Equal(t, []float64{100, 110}, c1.G)

	c2 := tree.Cells[1]
	assert.Equal(t, "20200101.1.1.3", c2.ParentID)
	assert.Equal(t, []float64{2}, c2.Times)
}

func TestLoadCellsResolvesParentByComposedID(t *testing.T) {
	// A daughter's composed parent_id ("date.pos.gl.parent_id") must
	// match its parent's raw cell ID exactly for BuildGenealogy to link
	// them; here the root cell's ID is itself the composed form.
	csv := "cell,date,pos,gl,parent_id,time_sec,length_um,fp\n" +
		"20200101.1.1.0,20200101,1,1,0,0,2.0,100\n" +
		"d1,20200101,1,1,0,1,1.0,50\n" +
		"d2,20200101,1,1,0,1,1.0,50\n"
	path := writeTempCSV(t, csv)

	tree, warnings, err := LoadCells(path, DefaultColumnConfig())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, tree.Cells, 3)

	root := tree.Cells[0]
	assert.True(t, root.IsRoot())
	daughters := root.Daughters()
	require.Len(t, daughters, 2)
	assert.ElementsMatch(t, []string{"d1", "d2"}, []string{
		tree.Cells[daughters[0]].ID,
		tree.Cells[daughters[1]].ID,
	})
}

func TestLoadCellsRejectsMissingColumn(t *testing.T) {
	path := writeTempCSV(t, "cell,date,pos,gl,parent_id,time_sec,length_um\nc1,1,1,1,0,0,2.0\n")
	_, _, err := LoadCells(path, DefaultColumnConfig())
	assert.Error(t, err)
}

func TestLoadCellsRejectsUnparsableNumericField(t *testing.T) {
	csv := "cell,date,pos,gl,parent_id,time_sec,length_um,fp\n" +
		"c1,20200101,1,1,0,not_a_number,2.0,100\n"
	path := writeTempCSV(t, csv)
	_, _, err := LoadCells(path, DefaultColumnConfig())
	assert.Error(t, err)
}

func TestLoadCellsHonorsCustomDelimiter(t *testing.T) {
	cfg := DefaultColumnConfig()
	cfg.Delimiter = ";"
	csv := "cell;date;pos;gl;parent_id;time_sec;length_um;fp\n" +
		"c1;20200101;1;1;0;0;2.0;100\n"
	path := writeTempCSV(t, csv)

	tree, _, err := LoadCells(path, cfg)
	require.NoError(t, err)
	require.Len(t, tree.Cells, 1)
	assert.Equal(t, "c1", tree.Cells[0].ID)
}

func TestLoadCellsSurfacesGenealogyWarnings(t *testing.T) {
	// Three daughters sharing one parent_id composition: BuildGenealogy
	// drops the third and reports a warning. The parent's own cell ID is
	// the composed form the daughters' parent_id resolves to.
	csv := "cell,date,pos,gl,parent_id,time_sec,length_um,fp\n" +
		"20200101.1.1.1,20200101,1,1,0,0,2.0,100\n" +
		"d1,20200101,1,1,1,1,1.0,50\n" +
		"d2,20200101,1,1,1,1,1.0,50\n" +
		"d3,20200101,1,1,1,1,1.0,50\n"
	path := writeTempCSV(t, csv)

	tree, warnings, err := LoadCells(path, DefaultColumnConfig())
	require.NoError(t, err)
	require.Len(t, tree.Cells, 4)
	assert.NotEmpty(t, warnings)
}

func TestLoadCellsStripsDecimalParentID(t *testing.T) {
	// Some data sources format parent_id as a float ("3.0"); the integer
	// cast truncates it instead of erroring, and the composed parent ID
	// still resolves against the parent's cell ID.
	csv := "cell,date,pos,gl,parent_id,time_sec,length_um,fp\n" +
		"20200101.1.1.3,20200101,1,1,0,0,2.0,100\n" +
		"d1,20200101,1,1,3.0,1,1.0,50\n"
	path := writeTempCSV(t, csv)

	tree, _, err := LoadCells(path, DefaultColumnConfig())
	require.NoError(t, err)
	require.Len(t, tree.Cells, 2)
	assert.Equal(t, "20200101.1.1.3", tree.Cells[1].ParentID)
	assert.False(t, tree.Cells[1].IsRoot())
}

func TestLoadCellsKeepsAlreadyLogLengthVerbatim(t *testing.T) {
	cfg := DefaultColumnConfig()
	cfg.LengthIsLog = true
	csv := "cell,date,pos,gl,parent_id,time_sec,length_um,fp\n" +
		"c1,20200101,1,1,0,0,-0.7,100\n"
	path := writeTempCSV(t, csv)

	tree, _, err := LoadCells(path, cfg)
	require.NoError(t, err)
	assert.Equal(t, []float64{-0.7}, tree.Cells[0].X)
}

func TestLoadCellsRejectsNonPositiveLength(t *testing.T) {
	csv := "cell,date,pos,gl,parent_id,time_sec,length_um,fp\n" +
		"c1,20200101,1,1,0,0,0,100\n"
	path := writeTempCSV(t, csv)

	_, _, err := LoadCells(path, DefaultColumnConfig())
	assert.Error(t, err)
}
