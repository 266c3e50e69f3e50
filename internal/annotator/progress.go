package annotator

import "log"

// progress logs completion in ten percent steps
type progress struct {
	label    string
	total    int
	interval int
}

func newProgress(label string, total int) *progress {
	interval := total / 10
	if interval < 1 {
		interval = 1
	}
	return &progress{label: label, total: total, interval: interval}
}

// step reports that the n-th item (1-based) is done
func (p *progress) step(n int) {
	if n%p.interval == 0 || n == p.total {
		log.Printf("  -- %s ... %d%%", p.label, n*100/p.total)
	}
}
