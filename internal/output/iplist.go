package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"daf/internal/domain"
)

const finalColumn = "final_annotation"

// IPListHeader returns the header of the IP annotation list. Each
// annotator in full adds its own five columns after the final annotation.
func IPListHeader(full []string) []string {
	header := []string{"ip_address", "possible_NAT"}
	for _, prefix := range append([]string{finalColumn}, full...) {
		for _, f := range domain.Fields {
			header = append(header, prefix+"_"+strings.ReplaceAll(string(f), "-", "_"))
		}
	}
	return header
}

// IPListRow returns the row of one record
func IPListRow(r *domain.Record, full []string) []string {
	row := []string{r.Address, strconv.FormatBool(r.Entry.Flags.Has(domain.FlagMultiDevice))}
	row = append(row, r.Entry.Final.Values()...)
	for _, name := range full {
		row = append(row, r.Entry.Annotations[name].Values()...)
	}
	return row
}

// WriteIPList writes one row per record. full names the annotators whose
// individual annotations are exported; nil exports only the final one.
func WriteIPList(path string, records []*domain.Record, full []string, delimiter rune) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create IP list: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = delimiter
	if err := w.Write(IPListHeader(full)); err != nil {
		return fmt.Errorf("write IP list: %w", err)
	}
	for _, r := range records {
		if err := w.Write(IPListRow(r, full)); err != nil {
			return fmt.Errorf("write IP list: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write IP list: %w", err)
	}
	return f.Close()
}
