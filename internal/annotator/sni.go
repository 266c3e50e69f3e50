package annotator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"daf/internal/config"
	"daf/internal/domain"
)

type sniRule struct {
	path string
	os   string
}

// sniField is a host column with an optional URI column
type sniField struct {
	host string
	uri  string
}

// SNIAnnotator classifies TLS SNI or HTTP host values of one flow column
type SNIAnnotator struct {
	rules map[string]sniRule
	field sniField
}

// NewSNIAnnotators builds one annotator per entry of "fields". An entry is a
// host column name or a [host, uri] pair.
func NewSNIAnnotators(cfg config.AnnotatorConfig, _ config.DAFConfig) ([]Annotator, error) {
	if err := cfg.Require("db_file", "fields"); err != nil {
		return nil, err
	}
	rules, err := LoadSNIDatabase(cfg.String("db_file"))
	if err != nil {
		return nil, err
	}
	fields, err := parseSNIFields(cfg.Settings["fields"])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Name, err)
	}

	out := make([]Annotator, 0, len(fields))
	for _, f := range fields {
		out = append(out, &SNIAnnotator{rules: rules, field: f})
	}
	return out, nil
}

func parseSNIFields(v any) ([]sniField, error) {
	items, ok := v.([]any)
	if !ok {
		if s, isString := v.(string); isString && s != "" {
			return []sniField{{host: s}}, nil
		}
		return nil, fmt.Errorf("fields must be a list")
	}

	var fields []sniField
	for _, item := range items {
		switch x := item.(type) {
		case string:
			fields = append(fields, sniField{host: x})
		case []any:
			if len(x) != 2 {
				return nil, fmt.Errorf("field pair must have two elements, got %d", len(x))
			}
			fields = append(fields, sniField{host: fmt.Sprint(x[0]), uri: fmt.Sprint(x[1])})
		default:
			return nil, fmt.Errorf("unsupported field entry %v", item)
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("no fields configured")
	}
	return fields, nil
}

// LoadSNIDatabase reads "url,uri,os_family" rows; uri "*" matches any path
func LoadSNIDatabase(path string) (map[string]sniRule, error) {
	head, rows, err := readTable(path, true)
	if err != nil {
		return nil, fmt.Errorf("SNI database: %w", err)
	}
	if len(head) < 3 || head[0] != "url" || head[1] != "uri" || head[2] != "os_family" {
		return nil, fmt.Errorf("SNI database %s: invalid header %v, expected url,uri,os_family", path, head)
	}

	rules := make(map[string]sniRule, len(rows))
	for _, row := range rows {
		rules[row[0]] = sniRule{path: row[1], os: domain.NormalizeLabel(row[2])}
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("SNI database %s is empty", path)
	}
	return rules, nil
}

// Name returns sni_annotator_<column>, using the last word of the column name
func (s *SNIAnnotator) Name() string {
	parts := strings.Fields(s.field.host)
	if len(parts) == 0 {
		return "sni_annotator"
	}
	return "sni_annotator_" + parts[len(parts)-1]
}

// Classify maps a host and optional URI to an annotation
func (s *SNIAnnotator) Classify(host, uri string) (domain.Annotation, bool) {
	rule, ok := s.rules[strings.TrimSpace(host)]
	if !ok {
		return domain.Annotation{}, false
	}
	if rule.path != "*" && (uri == "" || !strings.Contains(uri, rule.path)) {
		return domain.Annotation{}, false
	}

	a, ok := sniOS[rule.os]
	return a, ok
}

var sniOS = map[string]domain.Annotation{
	"windows":   {OSFamily: "windows", OSType: "windows"},
	"macos":     {Group: "end-device", OSFamily: "macos", OSType: "macos"},
	"android":   {Group: "end-device", Class: "mobile", OSFamily: "android", OSType: "android"},
	"ubuntu":    {OSFamily: "linux", OSType: "ubuntu"},
	"mint":      {OSFamily: "linux", OSType: "ubuntu"},
	"debian":    {OSFamily: "linux", OSType: "debian"},
	"fedora":    {OSFamily: "linux", OSType: "fedora"},
	"opensuse":  {OSFamily: "linux", OSType: "opensuse"},
	"archlinux": {OSFamily: "linux", OSType: "arch linux"},
	"manjaro":   {OSFamily: "linux", OSType: "arch linux"},
}

// Annotate proposes once per distinct matching host/uri pair, so an IP
// contacting several update servers of one OS gathers several votes
func (s *SNIAnnotator) Annotate(ctx context.Context, b *Batch) error {
	if !b.Flows.HasColumn(s.field.host) {
		return fmt.Errorf("column %s not found in dataset", s.field.host)
	}
	uriField := s.field.uri
	if uriField != "" && !b.Flows.HasColumn(uriField) {
		uriField = ""
	}

	p := newProgress(s.Name(), len(b.Addresses))
	for i, addr := range b.Addresses {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.step(i + 1)

		families := make(map[string]bool)
		for _, pair := range s.observations(b, addr, uriField) {
			a, ok := s.Classify(pair[0], pair[1])
			if !ok {
				continue
			}
			families[a.OSFamily] = true
			b.Proposer.Propose(addr, a)
		}

		if len(families) > 1 {
			evidence := make([]string, 0, len(families))
			for f := range families {
				evidence = append(evidence, f)
			}
			sort.Strings(evidence)
			b.Proposer.Signal(addr, domain.MultiDevice{Source: strings.TrimPrefix(s.Name(), "sni_annotator_"), Evidence: evidence})
		}
	}
	return nil
}

// observations returns the distinct [host, uri] pairs of addr
func (s *SNIAnnotator) observations(b *Batch, addr, uriField string) [][2]string {
	seen := make(map[[2]string]bool)
	var out [][2]string
	ds := b.Flows.Dataset()
	for _, row := range b.Flows.Rows(addr) {
		host := ds.Cell(row, s.field.host)
		if host == "" {
			continue
		}
		pair := [2]string{host, ""}
		if uriField != "" {
			pair[1] = ds.Cell(row, uriField)
		}
		if seen[pair] {
			continue
		}
		seen[pair] = true
		out = append(out, pair)
	}
	return out
}
