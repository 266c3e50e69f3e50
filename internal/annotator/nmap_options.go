package annotator

import "time"

// NmapOption is a functional option for configuring NmapAnnotator
type NmapOption func(*NmapAnnotator)

// WithScanTimeout bounds a single nmap invocation
func WithScanTimeout(d time.Duration) NmapOption {
	return func(n *NmapAnnotator) {
		n.timeout = d
	}
}

// WithPortRange sets the ports used for fingerprinting
// Format: "80,443,8080" or "1-1000" or "22,80-443,8080"
func WithPortRange(ports string) NmapOption {
	return func(n *NmapAnnotator) {
		if validated, err := parsePorts(ports); err == nil {
			n.portRange = validated
		}
	}
}

// WithSkipHostDiscovery sets whether to skip ping and treat all hosts as online (-Pn)
// Useful for networks that block ICMP
func WithSkipHostDiscovery(skip bool) NmapOption {
	return func(n *NmapAnnotator) {
		n.skipHostDiscovery = skip
	}
}

// WithMinAccuracy drops OS matches below the given accuracy (0-100)
func WithMinAccuracy(accuracy int) NmapOption {
	return func(n *NmapAnnotator) {
		n.minAccuracy = accuracy
	}
}

// WithBatchSize sets how many addresses are passed to one nmap invocation
func WithBatchSize(size int) NmapOption {
	return func(n *NmapAnnotator) {
		if size > 0 {
			n.batchSize = size
		}
	}
}

// WithCommonPorts fingerprints on common service ports
func WithCommonPorts() NmapOption {
	return func(n *NmapAnnotator) {
		n.portRange = "22,25,53,80,110,143,443,445,993,995,3306,3389,5432,5900,8080,8443"
	}
}

// WithFastScan trades accuracy for speed
func WithFastScan() NmapOption {
	return func(n *NmapAnnotator) {
		n.portRange = "22,80,443"
		n.timeout = 5 * time.Minute
	}
}
