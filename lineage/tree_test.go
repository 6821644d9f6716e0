package lineage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGenealogyLinksParentAndDaughters(t *testing.T) {
	tree := NewTree()
	mother := tree.AddCell(NewCell("m", ""))
	d1 := tree.AddCell(NewCell("d1", "m"))
	d2 := tree.AddCell(NewCell("d2", "m"))

	warnings := tree.BuildGenealogy()
	require.Empty(t, warnings)

	assert.True(t, tree.Cells[mother].IsRoot())
	assert.False(t, tree.Cells[d1].IsRoot())
	assert.False(t, tree.Cells[d2].IsRoot())
	assert.ElementsMatch(t, []int{d1, d2}, tree.Cells[mother].Daughters())
	assert.Equal(t, []int{mother}, tree.Roots)
}

func TestBuildGenealogyDropsThirdDaughterWithWarning(t *testing.T) {
	tree := NewTree()
	mother := tree.AddCell(NewCell("m", ""))
	tree.AddCell(NewCell("d1", "m"))
	tree.AddCell(NewCell("d2", "m"))
	d3 := tree.AddCell(NewCell("d3", "m"))

	warnings := tree.BuildGenealogy()
	require.Len(t, warnings, 1)

	assert.True(t, tree.Cells[d3].IsRoot(), "an unlinkable third daughter should become its own root rather than losing its data")
	assert.Len(t, tree.Cells[mother].Daughters(), 2)
}

func TestBuildGenealogyUnmatchedParentIDBecomesRoot(t *testing.T) {
	tree := NewTree()
	c := tree.AddCell(NewCell("orphan", "nonexistent.parent.id"))
	tree.BuildGenealogy()
	assert.True(t, tree.Cells[c].IsRoot())
}

func TestWalkPreOrderVisitsParentBeforeDaughters(t *testing.T) {
	tree := NewTree()
	tree.AddCell(NewCell("m", ""))
	tree.AddCell(NewCell("d1", "m"))
	tree.AddCell(NewCell("d2", "m"))
	tree.AddCell(NewCell("gd", "d1"))
	tree.BuildGenealogy()

	var order []string
	tree.Walk(func(idx int) { order = append(order, tree.Cells[idx].ID) })

	pos := map[string]int{}
	for i, id := range order {
		pos[id] = i
	}
	assert.Less(t, pos["m"], pos["d1"])
	assert.Less(t, pos["m"], pos["d2"])
	assert.Less(t, pos["d1"], pos["gd"])
}

func TestWalkPostOrderVisitsDaughtersBeforeParent(t *testing.T) {
	tree := NewTree()
	tree.AddCell(NewCell("m", ""))
	tree.AddCell(NewCell("d1", "m"))
	tree.AddCell(NewCell("d2", "m"))
	tree.BuildGenealogy()

	var order []string
	tree.WalkPostOrder(func(idx int) { order = append(order, tree.Cells[idx].ID) })

	pos := map[string]int{}
	for i, id := range order {
		pos[id] = i
	}
	assert.Less(t, pos["d1"], pos["m"])
	assert.Less(t, pos["d2"], pos["m"])
}

func TestCellHelpers(t *testing.T) {
	c := NewCell("a", "b")
	assert.True(t, c.IsRoot())
	assert.True(t, c.IsLeaf())
	assert.Equal(t, 0, c.NumObs())

	c.Times = []float64{0, 1, 2}
	assert.Equal(t, 3, c.NumObs())

	c.Daughter1 = 5
	assert.False(t, c.IsLeaf())
	assert.Equal(t, []int{5}, c.Daughters())
}
