package annotator

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"daf/internal/config"
	"daf/internal/domain"
)

// UserAgentAnnotator classifies the operating system named in HTTP User-Agent headers
type UserAgentAnnotator struct {
	field string
}

// NewUserAgentAnnotator builds the annotator from the "field" setting
func NewUserAgentAnnotator(cfg config.AnnotatorConfig, _ config.DAFConfig) ([]Annotator, error) {
	if err := cfg.Require("field"); err != nil {
		return nil, err
	}
	return []Annotator{&UserAgentAnnotator{field: cfg.String("field")}}, nil
}

// Name returns the annotator identifier
func (u *UserAgentAnnotator) Name() string {
	return "useragent_annotator"
}

var (
	windowsNT   = regexp.MustCompile(`windows nt (\d+\.\d+)`)
	androidVer  = regexp.MustCompile(`android (\d+(?:\.\d+)*)`)
	appleOSVer  = regexp.MustCompile(`(?:iphone )?os (\d+(?:_\d+)*) like mac os x`)
	macOSXVer   = regexp.MustCompile(`mac os x (\d+(?:[._]\d+)*)`)
	chromeOSVer = regexp.MustCompile(`cros \S+ (\d+(?:\.\d+)*)`)
)

var windowsVersions = map[string]string{
	"10.0": "10",
	"6.3":  "8.1",
	"6.2":  "8",
	"6.1":  "7",
	"6.0":  "vista",
	"5.2":  "xp",
	"5.1":  "xp",
}

var linuxDistributions = []struct {
	token  string
	osType string
}{
	{"ubuntu", "ubuntu"},
	{"debian", "debian"},
	{"fedora", "fedora"},
	{"centos", "centos"},
	{"red hat", "redhat"},
	{"rocky", "rocky"},
	{"suse", "suse"},
	{"gentoo", "gentoo"},
	{"arch linux", "arch linux"},
}

// ClassifyUserAgent extracts the annotation implied by one User-Agent string
func ClassifyUserAgent(ua string) (domain.Annotation, bool) {
	s := strings.ToLower(ua)
	mobile := strings.Contains(s, "mobile")

	switch {
	case strings.Contains(s, "windows phone"):
		return domain.Annotation{Group: "end-device", Class: "mobile", OSFamily: "windows", OSType: "windows phone"}, true

	case strings.Contains(s, "windows"):
		a := domain.Annotation{Group: "end-device", Class: "workstation", OSFamily: "windows", OSType: "windows"}
		if m := windowsNT.FindStringSubmatch(s); m != nil {
			a.OSVersion = windowsVersions[m[1]]
		}
		return a, true

	case strings.Contains(s, "android"):
		a := domain.Annotation{Group: "end-device", Class: "mobile", OSFamily: "android", OSType: "android"}
		if m := androidVer.FindStringSubmatch(s); m != nil {
			a.OSVersion = m[1]
		}
		return a, true

	case strings.Contains(s, "iphone"), strings.Contains(s, "ipad"), strings.Contains(s, "ipod"):
		a := domain.Annotation{Group: "end-device", Class: "mobile", OSFamily: "macos", OSType: "ios"}
		if strings.Contains(s, "ipad") {
			a.OSType = "ipados"
		}
		if m := appleOSVer.FindStringSubmatch(s); m != nil {
			a.OSVersion = strings.ReplaceAll(m[1], "_", ".")
		}
		return a, true

	case strings.Contains(s, "macintosh"), strings.Contains(s, "mac os x"):
		a := domain.Annotation{Group: "end-device", Class: "workstation", OSFamily: "macos", OSType: "macos"}
		if m := macOSXVer.FindStringSubmatch(s); m != nil {
			a.OSVersion = strings.ReplaceAll(m[1], "_", ".")
		}
		return a, true

	case strings.Contains(s, "cros"):
		a := domain.Annotation{Group: "end-device", Class: "workstation", OSFamily: "linux", OSType: "chromeos"}
		if m := chromeOSVer.FindStringSubmatch(s); m != nil {
			a.OSVersion = m[1]
		}
		return a, true

	case strings.Contains(s, "freebsd"), strings.Contains(s, "openbsd"), strings.Contains(s, "netbsd"):
		for _, bsd := range []string{"freebsd", "openbsd", "netbsd"} {
			if strings.Contains(s, bsd) {
				return domain.Annotation{OSFamily: "unix", OSType: bsd}, true
			}
		}

	case strings.Contains(s, "darwin"):
		return domain.Annotation{OSFamily: "unix", OSType: "darwin"}, true

	case strings.Contains(s, "linux"):
		a := domain.Annotation{OSFamily: "linux"}
		for _, d := range linuxDistributions {
			if strings.Contains(s, d.token) {
				a.OSType = d.osType
				break
			}
		}
		if mobile {
			a.Group, a.Class = "end-device", "mobile"
		}
		return a, true
	}
	return domain.Annotation{}, false
}

// Annotate proposes once per distinct User-Agent; several OS families for
// one IP are reported as a multi-device signal
func (u *UserAgentAnnotator) Annotate(ctx context.Context, b *Batch) error {
	if !b.Flows.HasColumn(u.field) {
		return fmt.Errorf("column %s not found in dataset", u.field)
	}

	p := newProgress("HTTP User-Agent annotation", len(b.Addresses))
	for i, addr := range b.Addresses {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.step(i + 1)

		families := make(map[string]bool)
		for _, ua := range b.Flows.Distinct(addr, u.field) {
			a, ok := ClassifyUserAgent(ua)
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
			b.Proposer.Signal(addr, domain.MultiDevice{Source: "UA", Evidence: evidence})
		}
	}
	return nil
}
