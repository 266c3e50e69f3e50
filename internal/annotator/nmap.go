package annotator

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"

	"daf/internal/config"
	"daf/internal/domain"
)

// scanFunc runs an OS detection scan over targets
type scanFunc func(ctx context.Context, targets []string) (*nmap.Run, error)

// NmapAnnotator proposes OS annotations from nmap OS detection (-O).
// OS detection requires root privileges.
type NmapAnnotator struct {
	timeout           time.Duration
	portRange         string
	skipHostDiscovery bool
	minAccuracy       int
	batchSize         int
	scan              scanFunc
}

// NewNmapAnnotator creates an nmap annotator
func NewNmapAnnotator(opts ...NmapOption) *NmapAnnotator {
	n := &NmapAnnotator{
		timeout:     10 * time.Minute,
		portRange:   "22,80,135,139,443,445,3389,8080",
		minAccuracy: 85,
		batchSize:   256,
	}
	for _, opt := range opts {
		opt(n)
	}
	n.scan = n.runScanner
	return n
}

// NewNmapAnnotatorFromConfig builds the annotator from "ports",
// "skip_host_discovery", "min_accuracy", "batch_size" and "scan_timeout"
func NewNmapAnnotatorFromConfig(cfg config.AnnotatorConfig, _ config.DAFConfig) ([]Annotator, error) {
	opts := []NmapOption{
		WithSkipHostDiscovery(cfg.Bool("skip_host_discovery", false)),
		WithMinAccuracy(cfg.Int("min_accuracy", 85)),
		WithBatchSize(cfg.Int("batch_size", 256)),
		WithScanTimeout(cfg.DurationSetting("scan_timeout", 10*time.Minute)),
	}
	if ports := cfg.String("ports"); ports != "" {
		if _, err := parsePorts(ports); err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.Name, err)
		}
		opts = append(opts, WithPortRange(ports))
	}
	return []Annotator{NewNmapAnnotator(opts...)}, nil
}

// Name returns the annotator identifier
func (n *NmapAnnotator) Name() string {
	return "nmap_annotator"
}

// Annotate scans the addresses in batches
func (n *NmapAnnotator) Annotate(ctx context.Context, b *Batch) error {
	wanted := make(map[string]bool, len(b.Addresses))
	for _, addr := range b.Addresses {
		wanted[addr] = true
	}

	for start := 0; start < len(b.Addresses); start += n.batchSize {
		end := start + n.batchSize
		if end > len(b.Addresses) {
			end = len(b.Addresses)
		}
		targets := b.Addresses[start:end]

		log.Printf("Nmap: OS detection on %d targets (%d/%d)", len(targets), end, len(b.Addresses))
		result, err := n.scan(ctx, targets)
		if err != nil {
			return fmt.Errorf("nmap scan: %w", err)
		}
		for addr, a := range n.processResults(result) {
			if wanted[addr] {
				b.Proposer.Propose(addr, a)
			}
		}
	}
	return nil
}

func (n *NmapAnnotator) runScanner(ctx context.Context, targets []string) (*nmap.Run, error) {
	scanCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	opts := []nmap.Option{
		nmap.WithTargets(targets...),
		nmap.WithPorts(n.portRange),
		nmap.WithOSDetection(),
	}
	if n.skipHostDiscovery {
		opts = append(opts, nmap.WithSkipHostDiscovery())
	}

	scanner, err := nmap.NewScanner(scanCtx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, err
	}
	if warnings != nil && len(*warnings) > 0 {
		log.Printf("Nmap: warnings: %v", *warnings)
	}
	return result, nil
}

// processResults converts scan results to one annotation per host that is
// up and has an OS match above the accuracy threshold
func (n *NmapAnnotator) processResults(result *nmap.Run) map[string]domain.Annotation {
	out := make(map[string]domain.Annotation)
	if result == nil {
		return out
	}

	for _, host := range result.Hosts {
		if host.Status.State != "up" || len(host.OS.Matches) == 0 {
			continue
		}
		var ip string
		for _, addr := range host.Addresses {
			if addr.AddrType == "ipv4" || addr.AddrType == "ipv6" {
				ip = addr.Addr
				break
			}
		}
		canonical, err := domain.CanonicalAddress(ip)
		if err != nil {
			continue
		}

		match := host.OS.Matches[0]
		if int(match.Accuracy) < n.minAccuracy {
			continue
		}
		if a := annotationFromOSMatch(match); !a.IsEmpty() {
			out[canonical] = a
		}
	}
	return out
}

// annotationFromOSMatch maps an nmap OS match to the DAF taxonomy
func annotationFromOSMatch(match nmap.OSMatch) domain.Annotation {
	var a domain.Annotation
	if len(match.Classes) == 0 {
		return a
	}
	class := match.Classes[0]
	family := strings.ToLower(class.Family)
	vendor := strings.ToLower(class.Vendor)

	switch {
	case family == "windows":
		a.OSFamily, a.OSType = "windows", "windows"
	case family == "android":
		a.OSFamily, a.OSType = "android", "android"
	case family == "ios" && vendor == "cisco":
		a.OSFamily, a.OSType = "other-unix-like", "cisco ios"
	case family == "ios", family == "mac os x", family == "macos":
		a.OSFamily, a.OSType = "macos", family
		if family == "mac os x" {
			a.OSType = "macos"
		}
	case family == "linux":
		a.OSFamily = "linux"
	case strings.Contains(family, "bsd"), family == "solaris":
		a.OSFamily, a.OSType = "unix", family
	case family == "routeros":
		a.OSFamily, a.OSType = "other-unix-like", "routeros"
	}
	if a.OSFamily != "" {
		a.OSVersion = versionFromName(match.Name)
	}

	switch strings.ToLower(class.Type) {
	case "router":
		a.Group, a.Class = "net-device", "router"
	case "switch":
		a.Group, a.Class = "net-device", "switch"
	case "firewall":
		a.Group, a.Class = "net-device", "firewall"
	case "wap":
		a.Group, a.Class = "net-device", "access point"
	case "printer":
		a.Group, a.Class = "end-device", "printer"
	case "phone":
		a.Group, a.Class = "end-device", "mobile"
	case "storage-misc":
		a.Group, a.Class = "server", "data"
	}
	return a
}

// versionFromName returns the first token of an OS match name containing a digit
func versionFromName(name string) string {
	for _, tok := range strings.Fields(name) {
		if hasDigit(tok) {
			return strings.ToLower(tok)
		}
	}
	return ""
}

// parsePorts validates a port range string
// Supported: "80,443,8080" or "1-1000" or "22,80-443,8080"
func parsePorts(portRange string) (string, error) {
	for _, part := range strings.Split(portRange, ",") {
		part = strings.TrimSpace(part)
		if lo, hi, isRange := strings.Cut(part, "-"); isRange {
			start, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil || start < 1 || start > 65535 {
				return "", fmt.Errorf("invalid port number: %s", lo)
			}
			end, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil || end < 1 || end > 65535 || end < start {
				return "", fmt.Errorf("invalid port number: %s", hi)
			}
			continue
		}
		port, err := strconv.Atoi(part)
		if err != nil || port < 1 || port > 65535 {
			return "", fmt.Errorf("invalid port number: %s", part)
		}
	}
	return portRange, nil
}
