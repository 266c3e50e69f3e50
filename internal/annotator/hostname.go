package annotator

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"daf/internal/config"
	"daf/internal/domain"
)

// LookupFunc resolves an IP address to host names
type LookupFunc func(ctx context.Context, addr string) ([]string, error)

// HostnameAnnotator classifies reverse DNS names using full-match,
// sequence and subsequence rules
type HostnameAnnotator struct {
	full         map[string]domain.Annotation
	sequences    map[string]domain.Annotation
	subsequences []hostnameRule
	lookup       LookupFunc
	interval     time.Duration
}

type hostnameRule struct {
	key        string
	annotation domain.Annotation
}

// NewHostnameAnnotator builds the annotator from "full_db", "sequences_db"
// and "subsequences_db"; "query_interval" paces reverse DNS queries
func NewHostnameAnnotator(cfg config.AnnotatorConfig, _ config.DAFConfig) ([]Annotator, error) {
	if err := cfg.Require("full_db", "sequences_db", "subsequences_db"); err != nil {
		return nil, err
	}
	h, err := LoadHostnameRules(cfg.String("full_db"), cfg.String("sequences_db"), cfg.String("subsequences_db"))
	if err != nil {
		return nil, err
	}
	h.interval = cfg.DurationSetting("query_interval", 0)
	return []Annotator{h}, nil
}

var hostnameColumns = []string{"group", "class", "os-family", "os-type", "os-version"}

// LoadHostnameRules reads the three rule tables. Sequence rules also apply
// as subsequences.
func LoadHostnameRules(fullPath, sequencesPath, subsequencesPath string) (*HostnameAnnotator, error) {
	full, err := readHostnameTable(fullPath, "hostname")
	if err != nil {
		return nil, err
	}
	sequences, err := readHostnameTable(sequencesPath, "sequence")
	if err != nil {
		return nil, err
	}
	subsequences, err := readHostnameTable(subsequencesPath, "subsequence")
	if err != nil {
		return nil, err
	}

	h := &HostnameAnnotator{
		full:      make(map[string]domain.Annotation, len(full)),
		sequences: make(map[string]domain.Annotation, len(sequences)),
		lookup:    net.DefaultResolver.LookupAddr,
	}
	for _, r := range full {
		h.full[r.key] = r.annotation
	}
	for _, r := range sequences {
		h.sequences[r.key] = r.annotation
	}

	seen := make(map[string]int)
	for _, r := range append(subsequences, sequences...) {
		if i, ok := seen[r.key]; ok {
			h.subsequences[i] = r
			continue
		}
		seen[r.key] = len(h.subsequences)
		h.subsequences = append(h.subsequences, r)
	}
	return h, nil
}

func readHostnameTable(path, keyColumn string) ([]hostnameRule, error) {
	records, err := readKeyedTable(path, append([]string{keyColumn}, hostnameColumns...)...)
	if err != nil {
		return nil, fmt.Errorf("hostname rules: %w", err)
	}
	rules := make([]hostnameRule, 0, len(records))
	for _, rec := range records {
		rules = append(rules, hostnameRule{
			key: strings.ToLower(rec[keyColumn]),
			annotation: domain.NewAnnotation(
				rec["group"], rec["class"], rec["os-family"], rec["os-type"], rec["os-version"],
			),
		})
	}
	return rules, nil
}

// Name returns the annotator identifier
func (h *HostnameAnnotator) Name() string {
	return "hostname_annotator"
}

// Classify returns the annotations implied by a host name. Full matches win;
// otherwise dot-separated labels are matched against sequences and, when that
// is not decisive, the first label is searched for subsequences.
func (h *HostnameAnnotator) Classify(hostname string) []domain.Annotation {
	hostname = strings.ToLower(strings.TrimSuffix(hostname, "."))
	if a, ok := h.full[hostname]; ok {
		return []domain.Annotation{a}
	}

	labels := strings.Split(hostname, ".")
	var bySequence []domain.Annotation
	for _, label := range labels {
		if a, ok := h.sequences[label]; ok {
			bySequence = append(bySequence, a)
		}
	}

	var out []domain.Annotation
	a, ok, decided := resolveMatches(bySequence)
	if ok {
		out = append(out, a)
	}
	if decided {
		return out
	}

	var bySubsequence []domain.Annotation
	for _, r := range h.subsequences {
		if strings.Contains(labels[0], r.key) {
			bySubsequence = append(bySubsequence, r.annotation)
		}
	}
	if a, ok, _ := resolveMatches(bySubsequence); ok {
		out = append(out, a)
	}
	return out
}

// resolveMatches combines rule matches. One match or matches agreeing on
// group and class give that annotation; matches agreeing only on group drop
// the class and keep looking; disagreeing groups stop the search.
func resolveMatches(matched []domain.Annotation) (a domain.Annotation, ok bool, decided bool) {
	if len(matched) == 0 {
		return domain.Annotation{}, false, false
	}
	first := matched[0]
	sameGroup, sameClass := true, true
	for _, m := range matched[1:] {
		if m.Group != first.Group {
			sameGroup = false
		}
		if m.Class != first.Class {
			sameClass = false
		}
	}
	switch {
	case len(matched) == 1 || (sameGroup && sameClass):
		return first, true, true
	case sameGroup:
		first.Class = ""
		return first, true, false
	}
	return domain.Annotation{}, false, true
}

// Annotate resolves every address and proposes the matching rule
func (h *HostnameAnnotator) Annotate(ctx context.Context, b *Batch) error {
	p := newProgress("reverse DNS annotation", len(b.Addresses))
	var last time.Time

	for i, addr := range b.Addresses {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.step(i + 1)

		if h.interval > 0 {
			if wait := h.interval - time.Since(last); wait > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(wait):
				}
			}
			last = time.Now()
		}

		names, err := h.lookup(ctx, addr)
		if err != nil || len(names) == 0 {
			continue
		}

		for _, a := range h.Classify(names[0]) {
			b.Proposer.Propose(addr, a)
		}
	}
	return nil
}
