package annotator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"daf/internal/domain"
	"daf/internal/flow"
)

// recorder is a Proposer that keeps everything it receives
type recorder struct {
	mu        sync.Mutex
	proposals map[string][]domain.Annotation
	signals   map[string][]domain.MultiDevice
}

func newRecorder() *recorder {
	return &recorder{
		proposals: make(map[string][]domain.Annotation),
		signals:   make(map[string][]domain.MultiDevice),
	}
}

func (r *recorder) Propose(addr string, a domain.Annotation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proposals[addr] = append(r.proposals[addr], a)
}

func (r *recorder) Signal(addr string, s domain.MultiDevice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals[addr] = append(r.signals[addr], s)
}

func testIndex(t *testing.T, data string) *flow.Index {
	t.Helper()
	ds, err := flow.Read(strings.NewReader(data), ',')
	require.NoError(t, err)
	idx, err := flow.NewIndex(ds, "src_ip", "")
	require.NoError(t, err)
	return idx
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func runAnnotator(t *testing.T, a Annotator, addrs []string, flows *flow.Index) *recorder {
	t.Helper()
	rec := newRecorder()
	require.NoError(t, a.Annotate(context.Background(), &Batch{Addresses: addrs, Flows: flows, Proposer: rec}))
	return rec
}

// funcAnnotator adapts a function to the Annotator interface
type funcAnnotator struct {
	name string
	fn   func(ctx context.Context, b *Batch) error
}

func (f *funcAnnotator) Name() string { return f.name }

func (f *funcAnnotator) Annotate(ctx context.Context, b *Batch) error { return f.fn(ctx, b) }
