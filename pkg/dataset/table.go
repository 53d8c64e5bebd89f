// Package dataset loads named tabular datasets from object storage.
// Container format is inferred from the object key's file extension;
// each reference yields one or more in-memory tables that live for the
// duration of a single request.
package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Table is an immutable in-memory tabular dataset. Cells are kept as
// strings: the service never computes on them, it only counts rows and
// re-serializes the table as CSV for the sandbox.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// RowCount returns the number of data rows (excluding the header).
func (t *Table) RowCount() int {
	return len(t.Rows)
}

// CSV serializes the table with a header row, for upload into the
// sandbox's file area.
func (t *Table) CSV() (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(t.Columns); err != nil {
		return "", fmt.Errorf("writing header for %s: %w", t.Name, err)
	}
	for i, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("writing row %d of %s: %w", i, t.Name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing CSV for %s: %w", t.Name, err)
	}
	return buf.String(), nil
}
