package domain

// Proposal is one annotator's suggested value for one field of one IP
type Proposal struct {
	Annotator string `json:"annotator" yaml:"annotator"`
	Field     Field  `json:"field" yaml:"field"`
	Value     string `json:"value" yaml:"value"`
}

// ProposalsFrom expands the non-empty fields of an annotation into proposals
func ProposalsFrom(annotator string, a Annotation) []Proposal {
	var proposals []Proposal
	for _, f := range Fields {
		if v := NormalizeLabel(a.Get(f)); v != "" {
			proposals = append(proposals, Proposal{Annotator: annotator, Field: f, Value: v})
		}
	}
	return proposals
}

// SummarizeProposals reduces proposals to one annotation per annotator,
// keeping the most frequent value of each field (first seen wins ties).
func SummarizeProposals(proposals []Proposal) map[string]Annotation {
	if len(proposals) == 0 {
		return nil
	}

	type fieldKey struct {
		annotator string
		field     Field
	}
	counts := make(map[fieldKey]map[string]int)
	order := make(map[fieldKey][]string)

	for _, p := range proposals {
		if p.Value == "" {
			continue
		}
		key := fieldKey{p.Annotator, p.Field}
		if counts[key] == nil {
			counts[key] = make(map[string]int)
		}
		if counts[key][p.Value] == 0 {
			order[key] = append(order[key], p.Value)
		}
		counts[key][p.Value]++
	}

	summary := make(map[string]Annotation)
	for key, values := range order {
		best := values[0]
		for _, v := range values[1:] {
			if counts[key][v] > counts[key][best] {
				best = v
			}
		}
		a := summary[key.annotator]
		a.Set(key.field, best)
		summary[key.annotator] = a
	}
	if len(summary) == 0 {
		return nil
	}
	return summary
}
