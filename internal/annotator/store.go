package annotator

import (
	"sort"
	"sync"

	"github.com/zeebo/xxh3"

	"daf/internal/domain"
)

const stripeCount = 64

type record struct {
	proposals []domain.Proposal
	signals   []domain.MultiDevice
}

// Store holds the proposals of one run, indexed by address. The set of
// addresses is fixed at construction; appends lock only the stripe of the
// target address.
type Store struct {
	stripes [stripeCount]sync.Mutex
	records map[string]*record
	order   []string
}

// NewStore creates a store for the given addresses
func NewStore(addrs []string) *Store {
	s := &Store{records: make(map[string]*record, len(addrs))}
	for _, addr := range addrs {
		if _, dup := s.records[addr]; dup {
			continue
		}
		s.records[addr] = &record{}
		s.order = append(s.order, addr)
	}
	return s
}

func (s *Store) stripe(addr string) *sync.Mutex {
	return &s.stripes[xxh3.HashString(addr)%stripeCount]
}

// Append adds proposals and signals for addr. It reports false when the
// address is not part of the store.
func (s *Store) Append(addr string, proposals []domain.Proposal, signals []domain.MultiDevice) bool {
	rec, ok := s.records[addr]
	if !ok {
		return false
	}
	mu := s.stripe(addr)
	mu.Lock()
	rec.proposals = append(rec.proposals, proposals...)
	rec.signals = append(rec.signals, signals...)
	mu.Unlock()
	return true
}

// Proposals returns a copy of the proposals recorded for addr
func (s *Store) Proposals(addr string) []domain.Proposal {
	rec, ok := s.records[addr]
	if !ok {
		return nil
	}
	mu := s.stripe(addr)
	mu.Lock()
	defer mu.Unlock()
	if len(rec.proposals) == 0 {
		return nil
	}
	return append([]domain.Proposal(nil), rec.proposals...)
}

// Signals returns a copy of the multi-device signals recorded for addr
func (s *Store) Signals(addr string) []domain.MultiDevice {
	rec, ok := s.records[addr]
	if !ok {
		return nil
	}
	mu := s.stripe(addr)
	mu.Lock()
	defer mu.Unlock()
	if len(rec.signals) == 0 {
		return nil
	}
	return append([]domain.MultiDevice(nil), rec.signals...)
}

// Addresses returns the store's addresses in insertion order
func (s *Store) Addresses() []string {
	return append([]string(nil), s.order...)
}

// Len returns the number of addresses
func (s *Store) Len() int {
	return len(s.order)
}

// AnnotatorCounts returns, per annotator, the number of addresses it
// proposed at least one value for
func (s *Store) AnnotatorCounts() map[string]int {
	counts := make(map[string]int)
	for _, addr := range s.order {
		seen := make(map[string]bool)
		for _, p := range s.Proposals(addr) {
			if !seen[p.Annotator] {
				seen[p.Annotator] = true
				counts[p.Annotator]++
			}
		}
	}
	return counts
}

// staging buffers the output of one annotator until it finishes
type staging struct {
	name      string
	mu        sync.Mutex
	closed    bool
	proposals map[string][]domain.Proposal
	signals   map[string][]domain.MultiDevice
	touched   []string
}

func newStaging(name string) *staging {
	return &staging{
		name:      name,
		proposals: make(map[string][]domain.Proposal),
		signals:   make(map[string][]domain.MultiDevice),
	}
}

func (st *staging) touch(addr string) {
	if _, ok := st.proposals[addr]; ok {
		return
	}
	if _, ok := st.signals[addr]; ok {
		return
	}
	st.touched = append(st.touched, addr)
}

// Propose implements Proposer
func (st *staging) Propose(addr string, a domain.Annotation) {
	ps := domain.ProposalsFrom(st.name, a)
	if len(ps) == 0 {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return
	}
	st.touch(addr)
	st.proposals[addr] = append(st.proposals[addr], ps...)
}

// Signal implements Proposer
func (st *staging) Signal(addr string, s domain.MultiDevice) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return
	}
	st.touch(addr)
	st.signals[addr] = append(st.signals[addr], s)
}

// close stops accepting output; late writes from a timed-out annotator are dropped
func (st *staging) close() {
	st.mu.Lock()
	st.closed = true
	st.mu.Unlock()
}

// commit appends the staged output to the store and returns the number of
// addresses that received proposals
func (st *staging) commit(s *Store) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.closed = true

	annotated := 0
	for _, addr := range st.touched {
		ps := st.proposals[addr]
		if !s.Append(addr, ps, st.signals[addr]) {
			continue
		}
		if len(ps) > 0 {
			annotated++
		}
	}
	return annotated
}

// sortedKeys is shared by annotators that report multi-device evidence
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
