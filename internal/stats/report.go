// Package stats summarizes the outcome of an annotation run for console output.
package stats

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"daf/internal/domain"
)

// Miss pairs an address with the details of its flag
type Miss struct {
	Address string
	Detail  string
}

// Report holds the counters of one run
type Report struct {
	IPs          int
	Success      int
	Unsuccessful int
	OneMiss      int
	NoAnnotation int
	HandMiss     int
	PossibleNAT  int

	// Annotators lists every annotator in report order; Hits counts the
	// addresses each one annotated
	Annotators []string
	Hits       map[string]int

	// Flows is zero when no dataset was annotated
	Flows          int
	AnnotatedFlows int

	HandMisses []Miss
	OneMisses  []Miss
	NATs       []Miss
}

// Collect builds a report over the records of a run. annotators are the
// enabled annotator names; annotators that only appear in reused entries
// are appended in name order.
func Collect(records []*domain.Record, annotators []string) *Report {
	r := &Report{
		IPs:        len(records),
		Annotators: append([]string(nil), annotators...),
		Hits:       make(map[string]int, len(annotators)),
	}
	for _, name := range annotators {
		r.Hits[name] = 0
	}

	var extra []string
	for _, rec := range records {
		e := rec.Entry
		switch {
		case !e.Final.IsEmpty():
			r.Success++
		case !e.HasAnnotations():
			r.NoAnnotation++
		default:
			r.Unsuccessful++
		}

		if len(e.OneMiss) > 0 {
			r.OneMiss++
			r.OneMisses = append(r.OneMisses, Miss{rec.Address, formatOneMiss(e.OneMiss)})
		}
		if len(e.HandMiss) > 0 {
			r.HandMiss++
			r.HandMisses = append(r.HandMisses, Miss{rec.Address, formatHandMiss(e.HandMiss)})
		}
		if len(e.MultiDevice) > 0 {
			r.PossibleNAT++
			r.NATs = append(r.NATs, Miss{rec.Address, formatMultiDevice(e.MultiDevice)})
		}

		for name, a := range e.Annotations {
			if a.IsEmpty() {
				continue
			}
			if _, ok := r.Hits[name]; !ok {
				extra = append(extra, name)
			}
			r.Hits[name]++
		}
	}

	sort.Strings(extra)
	r.Annotators = append(r.Annotators, extra...)
	return r
}

// SetFlows records the flow-level counts of the annotated dataset
func (r *Report) SetFlows(total, annotated int) {
	r.Flows = total
	r.AnnotatedFlows = annotated
}

// Lines returns the report ready for console display
func (r *Report) Lines() []string {
	lines := []string{
		"IP annotation summary:",
		"  -- IP count: " + humanize.Comma(int64(r.IPs)),
		"  -- Success annotation: " + humanize.Comma(int64(r.Success)),
		"  -- Unsuccessful annotation: " + humanize.Comma(int64(r.Unsuccessful)),
		"  -- Accepted with one miss: " + humanize.Comma(int64(r.OneMiss)),
		"  -- No annotation: " + humanize.Comma(int64(r.NoAnnotation)),
		"  -- Hand annotation conflicting with the rest of annotators: " + humanize.Comma(int64(r.HandMiss)),
		"  -- Possible NAT: " + humanize.Comma(int64(r.PossibleNAT)),
		"Annotated IPs per annotator:",
		"  -- IP count: " + humanize.Comma(int64(r.IPs)),
	}
	for _, name := range r.Annotators {
		lines = append(lines, fmt.Sprintf("  -- %s: %s", name, humanize.Comma(int64(r.Hits[name]))))
	}

	if r.Flows > 0 {
		lines = append(lines,
			"Dataset annotation summary:",
			"  -- Flow count: "+humanize.Comma(int64(r.Flows)),
			fmt.Sprintf("  -- Successfully annotated: %s (%.1f%%)", humanize.Comma(int64(r.AnnotatedFlows)),
				float64(r.AnnotatedFlows)*100/float64(r.Flows)),
			"  -- Without annotation: "+humanize.Comma(int64(r.Flows-r.AnnotatedFlows)),
		)
	}

	lines = append(lines, "Annotation fails:")
	lines = append(lines, missLines("Hand miss", r.HandMisses)...)
	lines = append(lines, missLines("One miss", r.OneMisses)...)
	lines = append(lines, missLines("NAT", r.NATs)...)
	return lines
}

// Log writes the report through the standard logger
func (r *Report) Log() {
	for _, line := range r.Lines() {
		log.Print(line)
	}
}

func missLines(label string, misses []Miss) []string {
	lines := []string{"  -- " + label + ":"}
	if len(misses) == 0 {
		return append(lines, "  --  -- None")
	}
	for _, m := range misses {
		lines = append(lines, fmt.Sprintf("  --  -- %s %s", m.Address, m.Detail))
	}
	return lines
}

func formatOneMiss(misses []domain.OneMiss) string {
	parts := make([]string, 0, len(misses))
	for _, m := range misses {
		parts = append(parts, fmt.Sprintf("%s=%s(%d) outlier=%s", m.Field, m.Accepted, m.AcceptedCount, m.Outlier))
	}
	return strings.Join(parts, ", ")
}

func formatHandMiss(misses []domain.HandMiss) string {
	parts := make([]string, 0, len(misses))
	for _, m := range misses {
		parts = append(parts, fmt.Sprintf("%s hand=%s voted=%s", m.Field, m.Hand, m.Voted))
	}
	return strings.Join(parts, ", ")
}

func formatMultiDevice(signals []domain.MultiDevice) string {
	parts := make([]string, 0, len(signals))
	for _, s := range signals {
		if len(s.Evidence) == 0 {
			parts = append(parts, s.Source)
			continue
		}
		parts = append(parts, s.Source+"["+strings.Join(s.Evidence, ", ")+"]")
	}
	return strings.Join(parts, ", ")
}
