package flow

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"net/netip"
	"os"
	"strings"
)

// AllRanges selects every IP address in the dataset
const AllRanges = "ALL"

// Ranges is a set of protected addresses and networks
type Ranges struct {
	addrs    map[netip.Addr]bool
	networks []netip.Prefix
}

// LoadRanges reads an ip_ranges CSV file ("ip,type" with addr or network rows).
// It returns nil for AllRanges.
func LoadRanges(path string) (*Ranges, error) {
	if path == "" || path == AllRanges {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ip_ranges: %w", err)
	}
	defer f.Close()

	return ParseRanges(f)
}

// ParseRanges parses ip_ranges rows from r
func ParseRanges(r io.Reader) (*Ranges, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rg := &Ranges{addrs: make(map[netip.Addr]bool)}
	line := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("ip_ranges line %d: %w", line, err)
		}
		if len(row) < 2 || strings.TrimSpace(row[0]) == "ip" {
			continue
		}

		value := strings.TrimSpace(row[0])
		switch kind := strings.TrimSpace(row[1]); kind {
		case "addr":
			addr, err := netip.ParseAddr(value)
			if err != nil {
				return nil, fmt.Errorf("ip_ranges line %d: %w", line, err)
			}
			rg.addrs[addr.Unmap()] = true
		case "network":
			prefix, err := netip.ParsePrefix(value)
			if err != nil {
				return nil, fmt.Errorf("ip_ranges line %d: %w", line, err)
			}
			rg.networks = append(rg.networks, prefix.Masked())
		default:
			log.Printf("ip_ranges: unknown type %q for %s, ignored", kind, value)
		}
	}
	return rg, nil
}

// Contains reports whether addr is a protected address or inside a protected network
func (rg *Ranges) Contains(addr netip.Addr) bool {
	if rg == nil {
		return true
	}
	addr = addr.Unmap()
	if rg.addrs[addr] {
		return true
	}
	for _, n := range rg.networks {
		if n.Contains(addr) {
			return true
		}
	}
	return false
}

// SelectAddresses returns the protected source (and destination) addresses
// of the dataset, deduplicated, in order of first appearance.
func SelectAddresses(ds *Dataset, srcField, dstField string, rg *Ranges) ([]string, error) {
	if err := ds.RequireColumns(srcField, dstField); err != nil {
		return nil, err
	}

	fields := []string{srcField}
	if dstField != "" {
		fields = append(fields, dstField)
	}

	seen := make(map[string]bool)
	var out []string
	for _, field := range fields {
		for i := range ds.Rows {
			addr, err := netip.ParseAddr(ds.Cell(i, field))
			if err != nil {
				continue
			}
			key := addr.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			if rg.Contains(addr) {
				out = append(out, key)
			}
		}
	}
	return out, nil
}
