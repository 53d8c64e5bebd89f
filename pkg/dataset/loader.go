package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/tabletalk-dev/tabletalk/pkg/api"
	"github.com/tabletalk-dev/tabletalk/pkg/objectstore"
	"github.com/tabletalk-dev/tabletalk/pkg/observability"
)

// Loader materializes remote object references into named tables.
type Loader struct {
	store objectstore.Store
}

// NewLoader creates a Loader backed by the given object store.
func NewLoader(store objectstore.Store) *Loader {
	return &Loader{store: store}
}

// Load fetches each reference and deserializes it according to its file
// extension. A multi-sheet spreadsheet yields one table per sheet named
// "{name}_{sheet}"; every other format (and a single-sheet spreadsheet)
// yields exactly one table under the logical name.
//
// There is no retry: a fetch or parse failure is fatal for the request.
func (l *Loader) Load(ctx context.Context, refs map[string]string) (map[string]*Table, error) {
	tables := make(map[string]*Table, len(refs))

	for name, ref := range refs {
		loaded, err := l.loadOne(ctx, name, ref)
		if err != nil {
			return nil, fmt.Errorf("loading dataset %q: %w", name, err)
		}
		for _, t := range loaded {
			tables[t.Name] = t
		}
	}

	return tables, nil
}

// loadOne fetches and parses a single reference into one or more tables.
func (l *Loader) loadOne(ctx context.Context, name, ref string) ([]*Table, error) {
	bucket, key, err := objectstore.ParseURL(ref)
	if err != nil {
		return nil, err
	}

	body, err := l.store.Get(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading s3://%s/%s: %w", bucket, key, err)
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(key), "."))

	var tables []*Table
	switch ext {
	case "csv":
		t, err := readCSV(data)
		if err != nil {
			return nil, err
		}
		t.Name = name
		tables = []*Table{t}

	case "xlsx", "xls":
		sheets, err := readExcel(data)
		if err != nil {
			return nil, err
		}
		tables = nameSheets(name, sheets)

	case "parquet":
		t, err := readParquet(data)
		if err != nil {
			return nil, err
		}
		t.Name = name
		tables = []*Table{t}

	case "json":
		t, err := readJSON(data)
		if err != nil {
			return nil, err
		}
		t.Name = name
		tables = []*Table{t}

	default:
		return nil, api.NewUnsupportedFormatError(ext)
	}

	for _, t := range tables {
		slog.Debug("dataset loaded",
			"table", t.Name,
			"columns", len(t.Columns),
			"rows", t.RowCount(),
		)
		observability.DatasetsLoadedTotal.WithLabelValues(ext).Inc()
	}

	return tables, nil
}

// nameSheets applies the naming rule for spreadsheets: a single sheet
// takes the logical name, multiple sheets take "{name}_{sheet}".
func nameSheets(name string, sheets []sheet) []*Table {
	tables := make([]*Table, 0, len(sheets))
	if len(sheets) == 1 {
		sheets[0].table.Name = name
		return append(tables, sheets[0].table)
	}
	for _, s := range sheets {
		s.table.Name = name + "_" + s.name
		tables = append(tables, s.table)
	}
	return tables
}
