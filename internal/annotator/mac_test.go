package annotator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daf/internal/config"
	"daf/internal/domain"
)

const ouiDB = `AA:BB:CC,Google,android
11:22:33,Apple,macos
44:55:66,Dell,windows
`

func TestMACClassify(t *testing.T) {
	m, err := LoadOUIDatabase(writeFile(t, "oui.csv", ouiDB))
	require.NoError(t, err)

	assert.Equal(t, domain.Annotation{Group: "end-device", Class: "mobile", OSFamily: "android"}, m.Classify("aa:bb:cc:00:11:22"))
	assert.Equal(t, domain.Annotation{Group: "end-device", OSFamily: "macos"}, m.Classify("11:22:33:44:55:66"))
	assert.Equal(t, domain.Annotation{OSFamily: "windows"}, m.Classify("44:55:66:00:00:00"))
	assert.True(t, m.Classify("99:99:99:00:00:00").IsEmpty())
}

func TestMACAnnotate(t *testing.T) {
	built, err := NewMACAnnotator(config.AnnotatorConfig{
		Name: "mac_annotator",
		Settings: map[string]any{
			"db_file":       writeFile(t, "oui.csv", ouiDB),
			"src_mac_field": "src_mac",
		},
	}, config.DAFConfig{})
	require.NoError(t, err)

	flows := testIndex(t, `src_ip,src_mac
10.0.0.1,AA:BB:CC:00:00:01
10.0.0.1,aa:bb:cc:00:00:01
10.0.0.2,11:22:33:00:00:01
10.0.0.2,44:55:66:00:00:01
10.0.0.3,
`)
	rec := runAnnotator(t, built[0], []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, flows)

	require.Len(t, rec.proposals["10.0.0.1"], 1)
	assert.Equal(t, "android", rec.proposals["10.0.0.1"][0].OSFamily)

	assert.Empty(t, rec.proposals["10.0.0.2"])
	require.Len(t, rec.signals["10.0.0.2"], 1)
	assert.Equal(t, "MAC", rec.signals["10.0.0.2"][0].Source)
	assert.Len(t, rec.signals["10.0.0.2"][0].Evidence, 2)

	assert.Empty(t, rec.proposals["10.0.0.3"])
	assert.Empty(t, rec.signals["10.0.0.3"])
}

func TestMACAnnotateMissingColumn(t *testing.T) {
	m, err := LoadOUIDatabase(writeFile(t, "oui.csv", ouiDB))
	require.NoError(t, err)
	m.srcField = "src_mac"

	err = m.Annotate(context.Background(), &Batch{
		Addresses: []string{"10.0.0.1"},
		Flows:     testIndex(t, "src_ip\n10.0.0.1\n"),
		Proposer:  newRecorder(),
	})
	assert.Error(t, err)
}
