package flow

import (
	"log"

	"daf/internal/domain"
)

// Index groups dataset rows by source IP and, optionally, destination IP.
// Addresses are canonicalized; rows with unparseable addresses are skipped.
type Index struct {
	ds    *Dataset
	src   map[string][]int
	dst   map[string][]int
	order []string
}

// NewIndex groups the dataset by srcField (required) and dstField (optional)
func NewIndex(ds *Dataset, srcField, dstField string) (*Index, error) {
	if err := ds.RequireColumns(srcField, dstField); err != nil {
		return nil, err
	}

	idx := &Index{
		ds:  ds,
		src: make(map[string][]int),
	}
	skipped := 0

	for i := range ds.Rows {
		addr, err := domain.CanonicalAddress(ds.Cell(i, srcField))
		if err != nil {
			skipped++
			continue
		}
		if _, seen := idx.src[addr]; !seen {
			idx.order = append(idx.order, addr)
		}
		idx.src[addr] = append(idx.src[addr], i)
	}

	if dstField != "" {
		idx.dst = make(map[string][]int)
		for i := range ds.Rows {
			addr, err := domain.CanonicalAddress(ds.Cell(i, dstField))
			if err != nil {
				continue
			}
			idx.dst[addr] = append(idx.dst[addr], i)
		}
	}

	if skipped > 0 {
		log.Printf("Flow index: skipped %d rows with invalid %s", skipped, srcField)
	}
	return idx, nil
}

// Dataset returns the underlying dataset
func (x *Index) Dataset() *Dataset {
	return x.ds
}

// Sources returns source addresses in order of first appearance
func (x *Index) Sources() []string {
	return append([]string(nil), x.order...)
}

// HasColumn reports whether the dataset has the named column
func (x *Index) HasColumn(name string) bool {
	return x != nil && x.ds.HasColumn(name)
}

// Rows returns the row numbers whose source IP is addr
func (x *Index) Rows(addr string) []int {
	if x == nil {
		return nil
	}
	return x.src[addr]
}

// Values returns the non-empty values of a column for flows sent by addr
func (x *Index) Values(addr, column string) []string {
	if x == nil {
		return nil
	}
	return x.collect(x.src[addr], column)
}

// DstValues returns the non-empty values of a column for flows received by addr.
// It is empty when the index has no destination grouping.
func (x *Index) DstValues(addr, column string) []string {
	if x == nil || x.dst == nil {
		return nil
	}
	return x.collect(x.dst[addr], column)
}

// Distinct returns the distinct non-empty values of a column for addr in
// order of first appearance
func (x *Index) Distinct(addr, column string) []string {
	return Distinct(x.Values(addr, column))
}

func (x *Index) collect(rows []int, column string) []string {
	if !x.ds.HasColumn(column) {
		return nil
	}
	var values []string
	for _, r := range rows {
		if v := x.ds.Cell(r, column); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// Distinct removes duplicates keeping first-appearance order
func Distinct(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
