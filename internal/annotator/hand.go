package annotator

import (
	"context"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"daf/internal/config"
	"daf/internal/domain"
)

// HandAnnotatorName is the annotator whose proposals override voting
const HandAnnotatorName = "hand_annotator"

type networkRule struct {
	prefix     netip.Prefix
	annotation domain.Annotation
}

// HandAnnotator applies hand-crafted rules keyed by address, network or range
type HandAnnotator struct {
	devices  map[netip.Addr]domain.Annotation
	networks []networkRule
}

// NewHandAnnotator builds the hand annotator from its "db" setting
func NewHandAnnotator(cfg config.AnnotatorConfig, _ config.DAFConfig) ([]Annotator, error) {
	if err := cfg.Require("db"); err != nil {
		return nil, err
	}
	h, err := LoadHandRules(cfg.String("db"))
	if err != nil {
		return nil, err
	}
	return []Annotator{h}, nil
}

// LoadHandRules reads rules in the form
// ip_address,group,class,os_family,os_type,os_version where ip_address is a
// single address, a CIDR network or "prefix{start-end}" (end exclusive).
func LoadHandRules(path string) (*HandAnnotator, error) {
	_, rows, err := readTable(path, false)
	if err != nil {
		return nil, fmt.Errorf("hand annotator database: %w", err)
	}

	h := &HandAnnotator{devices: make(map[netip.Addr]domain.Annotation)}
	for i, row := range rows {
		if len(row) == 0 || row[0] == "ip_address" {
			continue
		}
		if len(row) < 6 {
			return nil, fmt.Errorf("hand annotator database %s: line %d: expected 6 columns", path, i+1)
		}
		a := domain.NewAnnotation(row[1], row[2], row[3], row[4], row[5])

		if err := h.addRule(row[0], a); err != nil {
			return nil, fmt.Errorf("hand annotator database %s: line %d: %w", path, i+1, err)
		}
	}
	return h, nil
}

func (h *HandAnnotator) addRule(key string, a domain.Annotation) error {
	switch {
	case strings.Contains(key, "/"):
		prefix, err := netip.ParsePrefix(key)
		if err != nil {
			return err
		}
		h.networks = append(h.networks, networkRule{prefix: prefix.Masked(), annotation: a})
	case strings.Contains(key, "{"):
		addrs, err := expandRange(key)
		if err != nil {
			return err
		}
		for _, addr := range addrs {
			h.devices[addr] = a
		}
	default:
		addr, err := netip.ParseAddr(key)
		if err != nil {
			return err
		}
		h.devices[addr] = a
	}
	return nil
}

// expandRange expands "10.0.0.{1-5}" to 10.0.0.1 ... 10.0.0.4
func expandRange(key string) ([]netip.Addr, error) {
	prefix, rest, _ := strings.Cut(key, "{")
	bounds, _, ok := strings.Cut(rest, "}")
	if !ok {
		return nil, fmt.Errorf("invalid range %q", key)
	}
	lo, hi, ok := strings.Cut(bounds, "-")
	if !ok {
		return nil, fmt.Errorf("invalid range %q", key)
	}
	start, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return nil, fmt.Errorf("invalid range start in %q", key)
	}
	end, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return nil, fmt.Errorf("invalid range end in %q", key)
	}

	var addrs []netip.Addr
	for i := start; i < end; i++ {
		addr, err := netip.ParseAddr(prefix + strconv.Itoa(i))
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// Lookup returns the rule for addr: exact addresses win over networks,
// networks are tried in file order
func (h *HandAnnotator) Lookup(addr netip.Addr) (domain.Annotation, bool) {
	if a, ok := h.devices[addr]; ok {
		return a, true
	}
	for _, rule := range h.networks {
		if rule.prefix.Contains(addr) {
			return rule.annotation, true
		}
	}
	return domain.Annotation{}, false
}

// Name returns the annotator identifier
func (h *HandAnnotator) Name() string {
	return HandAnnotatorName
}

// Annotate proposes the matching rule for every address
func (h *HandAnnotator) Annotate(ctx context.Context, b *Batch) error {
	p := newProgress("hand annotation", len(b.Addresses))
	for i, s := range b.Addresses {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.step(i + 1)

		addr, err := netip.ParseAddr(s)
		if err != nil {
			continue
		}
		if a, ok := h.Lookup(addr); ok {
			b.Proposer.Propose(s, a)
		}
	}
	return nil
}
