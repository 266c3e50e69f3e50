// Package taxonomy validates annotations against the OS and device taxonomies.
//
// Both taxonomies are JSON objects mapping a parent label to its allowed
// children: OS family to OS types, device group to device classes.
package taxonomy

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"daf/internal/domain"
)

// Checker holds the loaded taxonomies
type Checker struct {
	os     map[string]map[string]bool
	device map[string]map[string]bool
}

// New creates a checker from in-memory taxonomies
func New(osTaxonomy, deviceTaxonomy map[string][]string) *Checker {
	return &Checker{
		os:     index(osTaxonomy),
		device: index(deviceTaxonomy),
	}
}

// Load reads the OS and device taxonomy files
func Load(osPath, devicePath string) (*Checker, error) {
	osTax, err := readTaxonomy(osPath)
	if err != nil {
		return nil, fmt.Errorf("OS taxonomy: %w", err)
	}
	devTax, err := readTaxonomy(devicePath)
	if err != nil {
		return nil, fmt.Errorf("device taxonomy: %w", err)
	}
	return New(osTax, devTax), nil
}

func readTaxonomy(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tax map[string][]string
	if err := json.Unmarshal(data, &tax); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return tax, nil
}

func index(tax map[string][]string) map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(tax))
	for parent, children := range tax {
		set := make(map[string]bool, len(children))
		for _, c := range children {
			set[domain.NormalizeLabel(c)] = true
		}
		out[domain.NormalizeLabel(parent)] = set
	}
	return out
}

// CheckOS reports whether the family exists and the type (if any) belongs to it.
// Versions have no taxonomy.
func (c *Checker) CheckOS(family, osType string) bool {
	return check(c.os, family, osType)
}

// CheckDevice reports whether the group exists and the class (if any) belongs to it
func (c *Checker) CheckDevice(group, class string) bool {
	return check(c.device, group, class)
}

func check(tax map[string]map[string]bool, parent, child string) bool {
	children, ok := tax[parent]
	if !ok {
		return false
	}
	return child == "" || children[child]
}

// Validate clears the device pair and the OS triple of an annotation when
// they are not part of the taxonomy. It returns the cleaned annotation and a
// description of every rejected part.
func (c *Checker) Validate(a domain.Annotation) (domain.Annotation, []string) {
	var rejected []string

	if a.OSFamily != "" || a.OSType != "" {
		if !c.CheckOS(a.OSFamily, a.OSType) {
			rejected = append(rejected, c.describe("OS", c.os, a.OSFamily, a.OSType))
			a.OSFamily, a.OSType, a.OSVersion = "", "", ""
		}
	} else if a.OSVersion != "" {
		rejected = append(rejected, fmt.Sprintf("OS version %q without family", a.OSVersion))
		a.OSVersion = ""
	}

	if a.Group != "" || a.Class != "" {
		if !c.CheckDevice(a.Group, a.Class) {
			rejected = append(rejected, c.describe("device", c.device, a.Group, a.Class))
			a.Group, a.Class = "", ""
		}
	}

	return a, rejected
}

func (c *Checker) describe(kind string, tax map[string]map[string]bool, parent, child string) string {
	msg := fmt.Sprintf("invalid %s taxonomy: %q/%q", kind, parent, child)
	if _, ok := tax[parent]; !ok {
		if s := closest(keys(tax), parent); s != "" {
			msg += fmt.Sprintf(" (closest %s: %q)", kind, s)
		}
		return msg
	}
	if s := closest(keys(tax[parent]), child); s != "" {
		msg += fmt.Sprintf(" (closest under %q: %q)", parent, s)
	}
	return msg
}

// closest returns the candidate with the smallest edit distance, or "" when
// nothing is within half the label length
func closest(candidates []string, label string) string {
	if label == "" || len(candidates) == 0 {
		return ""
	}
	best, bestDist := "", -1
	for _, cand := range candidates {
		d := levenshtein.ComputeDistance(label, cand)
		if bestDist < 0 || d < bestDist {
			best, bestDist = cand, d
		}
	}
	if bestDist > (len(label)+1)/2 {
		return ""
	}
	return best
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Labels returns all known parent labels of the OS or device taxonomy
func (c *Checker) Labels(kind string) []string {
	if strings.EqualFold(kind, "os") {
		return keys(c.os)
	}
	return keys(c.device)
}
