package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"
)

// readCSV parses a CSV document: first record is the header, the rest
// are data rows.
func readCSV(data []byte) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1 // tolerate ragged rows, pad below

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parsing CSV: document is empty")
	}

	header := records[0]
	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, padRow(rec, len(header)))
	}

	return &Table{Columns: header, Rows: rows}, nil
}

// sheet pairs a spreadsheet sheet name with its parsed table.
type sheet struct {
	name  string
	table *Table
}

// readExcel parses an xlsx/xls workbook into one table per sheet, in
// workbook order. Empty sheets yield empty tables.
func readExcel(data []byte) ([]sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	var sheets []sheet
	for _, name := range f.GetSheetList() {
		records, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", name, err)
		}

		t := &Table{}
		if len(records) > 0 {
			t.Columns = records[0]
			for _, rec := range records[1:] {
				t.Rows = append(t.Rows, padRow(rec, len(t.Columns)))
			}
		}
		sheets = append(sheets, sheet{name: name, table: t})
	}

	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return sheets, nil
}

// readParquet parses a parquet file with a flat schema. Nested schemas
// are rejected: the sandbox receives plain CSV, which cannot represent them.
func readParquet(data []byte) (*Table, error) {
	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening parquet: %w", err)
	}

	fields := f.Schema().Fields()
	columns := make([]string, len(fields))
	for i, field := range fields {
		if !field.Leaf() {
			return nil, fmt.Errorf("parquet column %q: nested schemas are not supported", field.Name())
		}
		columns[i] = field.Name()
	}

	var rows [][]string
	for _, rg := range f.RowGroups() {
		if err := func() error {
			r := rg.Rows()
			defer r.Close()

			buf := make([]parquet.Row, 64)
			for {
				n, err := r.ReadRows(buf)
				for _, row := range buf[:n] {
					rec := make([]string, len(columns))
					for _, v := range row {
						if c := v.Column(); c >= 0 && c < len(rec) {
							rec[c] = parquetValueString(v)
						}
					}
					rows = append(rows, rec)
				}
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return fmt.Errorf("reading parquet rows: %w", err)
				}
				if n == 0 {
					return nil
				}
			}
		}(); err != nil {
			return nil, err
		}
	}

	return &Table{Columns: columns, Rows: rows}, nil
}

// parquetValueString renders one parquet value as a CSV cell.
func parquetValueString(v parquet.Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind() {
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'g', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'g', -1, 64)
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}

// readJSON parses an array of flat JSON objects. Columns appear in
// first-seen order across records.
func readJSON(data []byte) (*Table, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("parsing JSON: expected an array of objects: %w", err)
	}

	// JSON object key order is not observable through Go maps; sort the
	// union of keys for a deterministic column order.
	var columns []string
	seen := make(map[string]bool)
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			if val, ok := rec[col]; ok {
				row[i] = jsonValueString(val)
			}
		}
		rows = append(rows, row)
	}

	return &Table{Columns: columns, Rows: rows}, nil
}

// jsonValueString renders one JSON value as a CSV cell.
func jsonValueString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// padRow extends or truncates a record to the given width.
func padRow(rec []string, width int) []string {
	if len(rec) == width {
		return rec
	}
	row := make([]string, width)
	copy(row, rec)
	return row
}
