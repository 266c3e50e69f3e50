package annotator

import (
	"context"
	"fmt"
	"strings"

	"daf/internal/config"
	"daf/internal/domain"
)

// MACAnnotator maps the OUI of the MAC addresses seen for an IP to an OS family
type MACAnnotator struct {
	ouis     map[string]string
	srcField string
	dstField string
}

// NewMACAnnotator builds the MAC annotator from "db_file", "src_mac_field"
// and the optional "dst_mac_field"
func NewMACAnnotator(cfg config.AnnotatorConfig, daf config.DAFConfig) ([]Annotator, error) {
	if err := cfg.Require("db_file", "src_mac_field"); err != nil {
		return nil, err
	}
	m, err := LoadOUIDatabase(cfg.String("db_file"))
	if err != nil {
		return nil, err
	}
	m.srcField = cfg.String("src_mac_field")
	if daf.DstIPField != "" {
		m.dstField = cfg.String("dst_mac_field")
	}
	return []Annotator{m}, nil
}

// LoadOUIDatabase reads "oui,vendor,os" rows
func LoadOUIDatabase(path string) (*MACAnnotator, error) {
	_, rows, err := readTable(path, false)
	if err != nil {
		return nil, fmt.Errorf("OUI database: %w", err)
	}
	m := &MACAnnotator{ouis: make(map[string]string, len(rows))}
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		m.ouis[strings.ToUpper(row[0])] = domain.NormalizeLabel(row[2])
	}
	if len(m.ouis) == 0 {
		return nil, fmt.Errorf("OUI database %s is empty", path)
	}
	return m, nil
}

// Name returns the annotator identifier
func (m *MACAnnotator) Name() string {
	return "mac_annotator"
}

// Classify returns the annotation implied by a MAC address
func (m *MACAnnotator) Classify(mac string) domain.Annotation {
	oui := strings.ToUpper(mac)
	if len(oui) > 8 {
		oui = oui[:8]
	}
	family := m.ouis[oui]

	a := domain.Annotation{OSFamily: family}
	switch family {
	case "android":
		a.Group, a.Class = "end-device", "mobile"
	case "macos":
		a.Group = "end-device"
	}
	return a
}

// Annotate proposes an annotation for every IP seen with exactly one MAC
// address; several MACs for one IP are reported as a multi-device signal
func (m *MACAnnotator) Annotate(ctx context.Context, b *Batch) error {
	if !b.Flows.HasColumn(m.srcField) {
		return fmt.Errorf("column %s not found in dataset", m.srcField)
	}
	if m.dstField != "" && !b.Flows.HasColumn(m.dstField) {
		return fmt.Errorf("column %s not found in dataset", m.dstField)
	}

	p := newProgress("MAC annotation", len(b.Addresses))
	for i, addr := range b.Addresses {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.step(i + 1)

		macs := b.Flows.Values(addr, m.srcField)
		if m.dstField != "" {
			macs = append(macs, b.Flows.DstValues(addr, m.dstField)...)
		}
		macs = distinctFold(macs)

		switch {
		case len(macs) == 0:
			continue
		case len(macs) > 1:
			b.Proposer.Signal(addr, domain.MultiDevice{Source: "MAC", Evidence: macs})
		default:
			b.Proposer.Propose(addr, m.Classify(macs[0]))
		}
	}
	return nil
}

// distinctFold deduplicates values case-insensitively keeping first appearance
func distinctFold(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		key := strings.ToLower(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
