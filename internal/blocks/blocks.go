// Package blocks rebuilds table grids from a flat block graph.
package blocks

import (
	"iter"
	"strings"

	"github.com/cleared-dev/stmtqbo/internal/model"
)

// selectedMarker stands in for a checked selection element inside a cell.
const selectedMarker = "[X]"

// Tables yields one model.Table per TABLE block that has at least one cell,
// in collection order. Grids are built as the sequence is consumed.
func Tables(blocks []model.Block) iter.Seq[model.Table] {
	return func(yield func(model.Table) bool) {
		byID := make(map[string]model.Block, len(blocks))
		for _, b := range blocks {
			byID[b.ID] = b
		}

		index := 0
		for _, b := range blocks {
			if b.Type != model.BlockTable {
				continue
			}
			cells := tableCells(b, byID)
			if len(cells) == 0 {
				continue
			}
			index++
			t := model.Table{
				ID:    b.ID,
				Page:  b.Page,
				Index: index,
				Grid:  buildGrid(cells, byID),
			}
			if !yield(t) {
				return
			}
		}
	}
}

func tableCells(table model.Block, byID map[string]model.Block) []model.Block {
	var cells []model.Block
	for _, id := range table.Children() {
		c, ok := byID[id]
		if !ok || c.Type != model.BlockCell {
			continue
		}
		cells = append(cells, c)
	}
	return cells
}

func buildGrid(cells []model.Block, byID map[string]model.Block) model.Grid {
	rows, cols := 0, 0
	for _, c := range cells {
		r0, c0, rs, cs := position(c)
		rows = max(rows, r0+rs)
		cols = max(cols, c0+cs)
	}

	grid := make(model.Grid, rows)
	for i := range grid {
		grid[i] = make([]string, cols)
	}

	for _, c := range cells {
		text := CellText(c, byID)
		r0, c0, rs, cs := position(c)
		for r := r0; r < r0+rs; r++ {
			for col := c0; col < c0+cs; col++ {
				if grid[r][col] == "" {
					grid[r][col] = text
				}
			}
		}
	}
	return grid
}

// position converts a cell's 1-based index and span into a 0-based origin
// and a span of at least one.
func position(c model.Block) (row, col, rowSpan, colSpan int) {
	return max(c.RowIndex, 1) - 1, max(c.ColumnIndex, 1) - 1, max(c.RowSpan, 1), max(c.ColumnSpan, 1)
}

// CellText joins the text of a cell's WORD children and checked selection
// elements with single spaces.
func CellText(cell model.Block, byID map[string]model.Block) string {
	var parts []string
	for _, id := range cell.Children() {
		child, ok := byID[id]
		if !ok {
			continue
		}
		switch child.Type {
		case model.BlockWord:
			parts = append(parts, child.Text)
		case model.BlockSelectionElement:
			if child.SelectionStatus == model.SelectionSelected {
				parts = append(parts, selectedMarker)
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
