// Package ingest reads rows from Parquet and NDJSON files and bulk indexes
// them as documents of a declared class.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// Row is one input record keyed by field name. The primary key is "id".
type Row = map[string]any

// RowFunc receives each row in file order. Returning an error stops reading.
type RowFunc func(Row) error

const rowBufferSize = 1000

// ReadFile dispatches on the file extension: .parquet, or NDJSON otherwise.
func ReadFile(path string, fn RowFunc) error {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return ReadParquet(path, fn)
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadNDJSON(f, fn)
}

// ReadNDJSON reads one JSON object per line. Numbers keep their literal
// form so large ids survive.
func ReadNDJSON(r io.Reader, fn RowFunc) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	for n := 1; ; n++ {
		var row Row
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("row %d: %w", n, err)
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// column is a leaf of the parquet schema, named by its top-level path
// element. Repeated leaves collect into lists.
type column struct {
	name     string
	repeated bool
}

// ReadParquet streams the rows of a parquet file row group by row group.
func ReadParquet(path string, fn RowFunc) error {
	h, err := openParquet(path)
	if err != nil {
		return err
	}
	defer h.Close()

	schema := h.pf.Schema()
	paths := schema.Columns()
	cols := make([]column, len(paths))
	for i, p := range paths {
		if len(p) == 0 {
			continue
		}
		leaf, _ := schema.Lookup(p...)
		cols[i] = column{name: p[0], repeated: leaf.MaxRepetitionLevel > 0}
	}

	for _, rg := range h.pf.RowGroups() {
		if err := readRowGroup(rg, cols, fn); err != nil {
			return fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

func readRowGroup(rg parquet.RowGroup, cols []column, fn RowFunc) error {
	rows := parquet.NewRowGroupReader(rg)
	buf := make([]parquet.Row, rowBufferSize)
	for {
		n, readErr := rows.ReadRows(buf)
		for i := range n {
			if err := fn(rowToMap(buf[i], cols)); err != nil {
				return err
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return fmt.Errorf("read rows: %w", readErr)
		}
	}
}

func rowToMap(row parquet.Row, cols []column) Row {
	out := make(Row, len(cols))
	for _, v := range row {
		idx := v.Column()
		if idx < 0 || idx >= len(cols) || cols[idx].name == "" || v.IsNull() {
			continue
		}
		c := cols[idx]
		if !c.repeated {
			out[c.name] = goValue(v)
			continue
		}
		list, _ := out[c.name].([]any)
		out[c.name] = append(list, goValue(v))
	}
	return out
}

func goValue(v parquet.Value) any {
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	default:
		return v.String()
	}
}

// parquetHandle wraps parquet.File + underlying os.File for proper cleanup.
type parquetHandle struct {
	pf   *parquet.File
	file *os.File
}

func (h *parquetHandle) Close() {
	_ = h.file.Close()
}

func openParquet(path string) (*parquetHandle, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	return &parquetHandle{pf: pf, file: f}, nil
}
