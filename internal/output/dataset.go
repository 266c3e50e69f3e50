package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"daf/internal/domain"
	"daf/internal/flow"
)

// AnnotatedColumns are appended to every flow of the annotated dataset
func AnnotatedColumns() []string {
	cols := make([]string, 0, len(domain.Fields))
	for _, f := range domain.Fields {
		cols = append(cols, strings.ReplaceAll(string(f), "-", "_"))
	}
	return cols
}

// WriteAnnotatedDataset copies the dataset to path with the final
// annotation of each flow's source address appended. It returns the number
// of flows that received at least one value.
func WriteAnnotatedDataset(path string, ds *flow.Dataset, srcField string, finals map[string]domain.Annotation, delimiter rune) (int, error) {
	if err := ds.RequireColumns(srcField); err != nil {
		return 0, err
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create annotated dataset: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = delimiter
	if err := w.Write(append(append([]string(nil), ds.Header...), AnnotatedColumns()...)); err != nil {
		return 0, fmt.Errorf("write annotated dataset: %w", err)
	}

	annotated := 0
	for i, row := range ds.Rows {
		var a domain.Annotation
		if addr, err := domain.CanonicalAddress(ds.Cell(i, srcField)); err == nil {
			a = finals[addr]
		}
		if !a.IsEmpty() {
			annotated++
		}

		out := make([]string, 0, len(ds.Header)+len(domain.Fields))
		out = append(out, row...)
		for len(out) < len(ds.Header) {
			out = append(out, "")
		}
		out = append(out[:len(ds.Header)], a.Values()...)
		if err := w.Write(out); err != nil {
			return annotated, fmt.Errorf("write annotated dataset: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return annotated, fmt.Errorf("write annotated dataset: %w", err)
	}
	return annotated, f.Close()
}
