package annotator

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// readTable reads a CSV file into rows. With header set, the first row is
// returned separately and rows shorter than it are skipped.
func readTable(path string, header bool) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'

	var head []string
	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		if header && head == nil {
			head = row
			continue
		}
		if header && len(row) < len(head) {
			continue
		}
		rows = append(rows, row)
	}
	return head, rows, nil
}

// readKeyedTable reads a CSV file with a header into records keyed by column name
func readKeyedTable(path string, required ...string) ([]map[string]string, error) {
	head, rows, err := readTable(path, true)
	if err != nil {
		return nil, err
	}
	cols := make(map[string]int, len(head))
	for i, h := range head {
		cols[h] = i
	}
	for _, r := range required {
		if _, ok := cols[r]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", path, r)
		}
	}

	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		rec := make(map[string]string, len(head))
		for name, i := range cols {
			rec[name] = row[i]
		}
		out = append(out, rec)
	}
	return out, nil
}

// mostCommon returns the most frequent non-empty value, first seen winning ties
func mostCommon(values []string) string {
	counts := make(map[string]int, len(values))
	var order []string
	for _, v := range values {
		if v == "" {
			continue
		}
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	best := ""
	for _, v := range order {
		if best == "" || counts[v] > counts[best] {
			best = v
		}
	}
	return best
}
