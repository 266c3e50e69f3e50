package annotator

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daf/internal/domain"
)

func TestStoreAppend(t *testing.T) {
	s := NewStore([]string{"10.0.0.1", "10.0.0.2", "10.0.0.1"})
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, s.Addresses())

	p := domain.Proposal{Annotator: "a", Field: domain.FieldGroup, Value: "server"}
	assert.True(t, s.Append("10.0.0.1", []domain.Proposal{p}, nil))
	assert.False(t, s.Append("10.9.9.9", []domain.Proposal{p}, nil))

	got := s.Proposals("10.0.0.1")
	require.Len(t, got, 1)
	got[0].Value = "mutated"
	assert.Equal(t, "server", s.Proposals("10.0.0.1")[0].Value, "Proposals must return a copy")

	assert.Nil(t, s.Proposals("10.0.0.2"))
	assert.Nil(t, s.Signals("10.0.0.1"))
}

func TestStoreConcurrentAppend(t *testing.T) {
	addrs := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}
	s := NewStore(addrs)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				addr := addrs[i%len(addrs)]
				s.Append(addr, []domain.Proposal{{
					Annotator: fmt.Sprintf("a%d", w),
					Field:     domain.FieldClass,
					Value:     "pc",
				}}, nil)
			}
		}(w)
	}
	wg.Wait()

	total := 0
	for _, addr := range addrs {
		total += len(s.Proposals(addr))
	}
	assert.Equal(t, 800, total)

	counts := s.AnnotatorCounts()
	assert.Len(t, counts, 8)
	assert.Equal(t, 3, counts["a0"])
}

func TestStagingCommit(t *testing.T) {
	s := NewStore([]string{"10.0.0.1", "10.0.0.2"})
	st := newStaging("mac_annotator")

	st.Propose("10.0.0.1", domain.Annotation{OSFamily: "android"})
	st.Propose("10.0.0.2", domain.Annotation{})
	st.Signal("10.0.0.2", domain.MultiDevice{Source: "MAC", Evidence: []string{"a", "b"}})
	st.Propose("10.9.9.9", domain.Annotation{OSFamily: "linux"})

	assert.Equal(t, 1, st.commit(s))
	assert.Equal(t, []domain.Proposal{{Annotator: "mac_annotator", Field: domain.FieldOSFamily, Value: "android"}}, s.Proposals("10.0.0.1"))
	assert.Nil(t, s.Proposals("10.0.0.2"))
	assert.Len(t, s.Signals("10.0.0.2"), 1)

	st.Propose("10.0.0.1", domain.Annotation{OSFamily: "linux"})
	assert.Len(t, s.Proposals("10.0.0.1"), 1, "committed staging ignores late output")
}

func TestStagingClose(t *testing.T) {
	s := NewStore([]string{"10.0.0.1"})
	st := newStaging("slow")
	st.close()
	st.Propose("10.0.0.1", domain.Annotation{Group: "server"})
	assert.Equal(t, 0, st.commit(s))
	assert.Nil(t, s.Proposals("10.0.0.1"))
}
