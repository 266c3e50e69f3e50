// Package flow reads flow datasets and groups their records by IP address.
package flow

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMissingColumn is returned when a configured field is not in the dataset header
var ErrMissingColumn = errors.New("column not found in dataset")

// Dataset is a flow table loaded into memory
type Dataset struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

// ReadFile loads a delimited dataset from disk
func ReadFile(path string, delimiter rune) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	ds, err := Read(f, delimiter)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}
	return ds, nil
}

// Read parses a delimited dataset with a header row
func Read(r io.Reader, delimiter rune) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty dataset")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	ds := &Dataset{
		Header: make([]string, len(header)),
		index:  make(map[string]int, len(header)),
	}
	for i, name := range header {
		name = strings.TrimSpace(name)
		ds.Header[i] = name
		if _, dup := ds.index[name]; !dup {
			ds.index[name] = i
		}
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(ds.Rows)+2, err)
		}
		ds.Rows = append(ds.Rows, row)
	}

	return ds, nil
}

// Column returns the index of a header column
func (d *Dataset) Column(name string) (int, bool) {
	i, ok := d.index[name]
	return i, ok
}

// HasColumn reports whether the dataset has the named column
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// RequireColumns returns ErrMissingColumn for the first absent column
func (d *Dataset) RequireColumns(names ...string) error {
	for _, name := range names {
		if name == "" {
			continue
		}
		if !d.HasColumn(name) {
			return fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return nil
}

// Cell returns the trimmed value of a column in a row, or "" when absent
func (d *Dataset) Cell(row int, column string) string {
	i, ok := d.index[column]
	if !ok || row < 0 || row >= len(d.Rows) {
		return ""
	}
	r := d.Rows[row]
	if i >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[i])
}

// Len returns the number of flow records
func (d *Dataset) Len() int {
	return len(d.Rows)
}
