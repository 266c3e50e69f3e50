package annotator

import (
	"context"
	"fmt"
	"strconv"

	"daf/internal/config"
	"daf/internal/domain"
)

// NAT detection thresholds
const (
	DefaultMinTTLCounts = 5
	DefaultMinSrcPorts  = 500
)

// NATDetector reports hosts whose flows show many distinct TTL frequencies
// and many source ports, which suggests several devices behind one address
type NATDetector struct {
	ttlField     string
	srcPortField string
	minTTLCounts int
	minSrcPorts  int
}

// NewNATDetector builds the detector from "field" (TTL column) and the
// daf-level src_port_field
func NewNATDetector(cfg config.AnnotatorConfig, daf config.DAFConfig) ([]Annotator, error) {
	if err := cfg.Require("field"); err != nil {
		return nil, err
	}
	if daf.SrcPortField == "" {
		return nil, fmt.Errorf("%s: %w: daf.src_port_field", cfg.Name, config.ErrMissingSetting)
	}
	return []Annotator{&NATDetector{
		ttlField:     cfg.String("field"),
		srcPortField: daf.SrcPortField,
		minTTLCounts: cfg.Int("min_ttl_counts", DefaultMinTTLCounts),
		minSrcPorts:  cfg.Int("min_src_ports", DefaultMinSrcPorts),
	}}, nil
}

// Name returns the detector identifier
func (n *NATDetector) Name() string {
	return "nat_detector"
}

// Annotate emits only multi-device signals
func (n *NATDetector) Annotate(ctx context.Context, b *Batch) error {
	if !b.Flows.HasColumn(n.ttlField) || !b.Flows.HasColumn(n.srcPortField) {
		return fmt.Errorf("columns %s or %s not found in dataset", n.ttlField, n.srcPortField)
	}

	p := newProgress("NAT detection", len(b.Addresses))
	for i, addr := range b.Addresses {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.step(i + 1)

		ttls := countNonZero(b.Flows.Values(addr, n.ttlField))
		ports := countNonZero(b.Flows.Values(addr, n.srcPortField))

		if distinctCounts(ttls) < n.minTTLCounts || len(ports) < n.minSrcPorts {
			continue
		}

		evidence := make([]string, 0, len(ttls))
		for _, ttl := range sortedKeys(ttls) {
			evidence = append(evidence, fmt.Sprintf("ttl=%s:%d", ttl, ttls[ttl]))
		}
		evidence = append(evidence, fmt.Sprintf("src_ports=%d", len(ports)))
		b.Proposer.Signal(addr, domain.MultiDevice{Source: "NAT_detector", Evidence: evidence})
	}
	return nil
}

// countNonZero counts occurrences of every value that is not zero
func countNonZero(values []string) map[string]int {
	counts := make(map[string]int)
	for _, v := range values {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			if f == 0 {
				continue
			}
			v = strconv.FormatFloat(f, 'f', -1, 64)
		}
		counts[v]++
	}
	return counts
}

// distinctCounts returns how many different frequencies occur
func distinctCounts(counts map[string]int) int {
	seen := make(map[int]bool, len(counts))
	for _, c := range counts {
		seen[c] = true
	}
	return len(seen)
}
