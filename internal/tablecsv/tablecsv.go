// Package tablecsv writes and reads the diagnostic CSV dump of every table
// found in a document.
package tablecsv

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/cleared-dev/stmtqbo/internal/model"
)

const (
	// BOM prefixes every dump so spreadsheet tools detect UTF-8.
	BOM = "\ufeff"
	// NoTables is the whole body of a dump without tables.
	NoTables = "#NO_TABLES_FOUND"
)

var markerRe = regexp.MustCompile(`^#TABLE (\d+) \(Page (\d+)\)$`)

// Marker returns the section line that introduces t.
func Marker(t model.Table) string {
	return fmt.Sprintf("#TABLE %d (Page %d)", t.Index, t.Page)
}

// Write writes a BOM followed by one section per table: the marker, the grid
// rows and an empty line.
func Write(w io.Writer, tables []model.Table) error {
	if _, err := io.WriteString(w, BOM); err != nil {
		return fmt.Errorf("writing BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	defer cw.Flush()

	if len(tables) == 0 {
		if err := cw.Write([]string{NoTables}); err != nil {
			return fmt.Errorf("writing sentinel: %w", err)
		}
		cw.Flush()
		return cw.Error()
	}

	for _, t := range tables {
		if err := cw.Write([]string{Marker(t)}); err != nil {
			return fmt.Errorf("writing table %d marker: %w", t.Index, err)
		}
		for i, row := range t.Grid {
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing table %d row %d: %w", t.Index, i+1, err)
			}
		}
		if err := cw.Write(nil); err != nil {
			return fmt.Errorf("writing table %d separator: %w", t.Index, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read parses a dump back into tables. A CSV without section markers is
// read as a single table on page 0. Blank lines are not preserved.
func Read(r io.Reader) ([]model.Table, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(BOM)); err == nil && string(b) == BOM {
		if _, err := br.Discard(len(BOM)); err != nil {
			return nil, fmt.Errorf("skipping BOM: %w", err)
		}
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading tables CSV: %w", err)
	}
	if len(records) == 0 || (len(records) == 1 && len(records[0]) == 1 && records[0][0] == NoTables) {
		return nil, nil
	}

	var tables []model.Table
	for _, rec := range records {
		if len(rec) == 1 {
			if m := markerRe.FindStringSubmatch(rec[0]); m != nil {
				idx, _ := strconv.Atoi(m[1])
				page, _ := strconv.Atoi(m[2])
				tables = append(tables, model.Table{Index: idx, Page: page})
				continue
			}
		}
		if len(tables) == 0 {
			tables = append(tables, model.Table{Index: 1})
		}
		cur := &tables[len(tables)-1]
		cur.Grid = append(cur.Grid, rec)
	}
	return tables, nil
}
