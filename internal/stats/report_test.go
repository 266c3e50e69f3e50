package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daf/internal/domain"
)

func sampleRecords() []*domain.Record {
	return []*domain.Record{
		{
			Address: "10.0.0.1",
			Entry: domain.Entry{
				Final:       domain.Annotation{Group: "server"},
				Annotations: map[string]domain.Annotation{"hand_annotator": {Group: "server"}, "mac_annotator": {}},
				HandMiss:    []domain.HandMiss{{Field: domain.FieldGroup, Hand: "server", Voted: "router"}},
			},
		},
		{
			Address: "10.0.0.2",
			Entry: domain.Entry{
				Annotations: map[string]domain.Annotation{"mac_annotator": {OSFamily: "linux"}, "sni_annotator_host": {OSFamily: "windows"}},
				MultiDevice: []domain.MultiDevice{{Source: "voting", Evidence: []string{"os-family=linux|windows"}}},
			},
		},
		{
			Address: "10.0.0.3",
			Entry: domain.Entry{
				Final:       domain.Annotation{OSFamily: "linux"},
				Annotations: map[string]domain.Annotation{"mac_annotator": {OSFamily: "linux"}},
				OneMiss:     []domain.OneMiss{{Field: domain.FieldOSFamily, Accepted: "linux", AcceptedCount: 2, Outlier: "android"}},
			},
		},
		{Address: "10.0.0.4"},
	}
}

func TestCollect(t *testing.T) {
	r := Collect(sampleRecords(), []string{"hand_annotator", "mac_annotator", "nmap_annotator"})

	assert.Equal(t, 4, r.IPs)
	assert.Equal(t, 2, r.Success)
	assert.Equal(t, 1, r.Unsuccessful)
	assert.Equal(t, 1, r.NoAnnotation)
	assert.Equal(t, 1, r.OneMiss)
	assert.Equal(t, 1, r.HandMiss)
	assert.Equal(t, 1, r.PossibleNAT)

	assert.Equal(t, []string{"hand_annotator", "mac_annotator", "nmap_annotator", "sni_annotator_host"}, r.Annotators)
	assert.Equal(t, map[string]int{
		"hand_annotator":     1,
		"mac_annotator":      2,
		"nmap_annotator":     0,
		"sni_annotator_host": 1,
	}, r.Hits)

	require.Len(t, r.HandMisses, 1)
	assert.Equal(t, "10.0.0.1", r.HandMisses[0].Address)
	assert.Equal(t, "group hand=server voted=router", r.HandMisses[0].Detail)
	require.Len(t, r.OneMisses, 1)
	assert.Equal(t, "os-family=linux(2) outlier=android", r.OneMisses[0].Detail)
	require.Len(t, r.NATs, 1)
	assert.Equal(t, "voting[os-family=linux|windows]", r.NATs[0].Detail)
}

func TestLines(t *testing.T) {
	t.Run("without dataset", func(t *testing.T) {
		r := Collect(nil, []string{"hand_annotator"})
		lines := r.Lines()
		assert.Contains(t, lines, "  -- IP count: 0")
		assert.Contains(t, lines, "  -- hand_annotator: 0")
		assert.NotContains(t, lines, "Dataset annotation summary:")
		assert.Equal(t, []string{"  -- NAT:", "  --  -- None"}, lines[len(lines)-2:])
	})

	t.Run("with flows", func(t *testing.T) {
		r := Collect(sampleRecords(), nil)
		r.SetFlows(12345, 2000)
		lines := r.Lines()
		assert.Contains(t, lines, "  -- Flow count: 12,345")
		assert.Contains(t, lines, "  -- Successfully annotated: 2,000 (16.2%)")
		assert.Contains(t, lines, "  -- Without annotation: 10,345")
		assert.Contains(t, lines, "  --  -- 10.0.0.3 os-family=linux(2) outlier=android")
	})

	t.Run("one miss counts as accepted", func(t *testing.T) {
		r := Collect(sampleRecords(), nil)
		lines := r.Lines()
		assert.Contains(t, lines, "  -- Success annotation: 2")
		assert.Contains(t, lines, "  -- Accepted with one miss: 1")
		for _, l := range lines {
			assert.NotContains(t, l, "Unsuccessful annotation, caused by")
		}
	})
}
