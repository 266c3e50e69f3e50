package output

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daf/internal/domain"
	"daf/internal/flow"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestPathsFor(t *testing.T) {
	tests := []struct {
		name         string
		dataset      string
		reannotation string
		want         Paths
	}{
		{
			"annotation", "data/flows.csv", "",
			Paths{IPList: "data/flows_ip_annotation_list.csv", Annotated: "data/flows_annotated.csv", Snapshot: "data/flows_ip_data.json"},
		},
		{
			"reannotation with dataset", "data/new.csv", "data/flows_ip_data.json",
			Paths{IPList: "data/new_ip_annotation_list_reannotation.csv", Annotated: "data/new_annotated.csv", Snapshot: "data/flows_ip_data_updated.json"},
		},
		{
			"reannotation only", "", "state/snap.yaml",
			Paths{IPList: "state/snap_ip_annotation_list_reannotation.csv", Snapshot: "state/snap_ip_data_updated.yaml"},
		},
		{
			"updated snapshot is rewritten", "data/new.csv", "data/flows_ip_data_updated.json",
			Paths{IPList: "data/new_ip_annotation_list_reannotation.csv", Annotated: "data/new_annotated.csv", Snapshot: "data/flows_ip_data_updated.json"},
		},
		{
			"sqlite snapshot", "flows.csv", "state/daf.db",
			Paths{IPList: "flows_ip_annotation_list_reannotation.csv", Annotated: "flows_annotated.csv", Snapshot: "state/daf.db"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PathsFor(tt.dataset, tt.reannotation))
		})
	}
}

func TestWriteIPList(t *testing.T) {
	records := []*domain.Record{
		{
			Address: "10.0.0.1",
			Entry: domain.Entry{
				Final: domain.Annotation{Group: "server", OSFamily: "linux"},
				Flags: domain.Flags{domain.FlagMultiDevice},
				Annotations: map[string]domain.Annotation{
					"hand_annotator": {Group: "server"},
				},
			},
		},
		{Address: "10.0.0.2"},
	}

	path := filepath.Join(t.TempDir(), "list.csv")
	require.NoError(t, WriteIPList(path, records, []string{"hand_annotator", "mac_annotator"}, ','))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Len(t, rows[0], 2+3*5)
	assert.Equal(t, []string{"ip_address", "possible_NAT", "final_annotation_group", "final_annotation_class"}, rows[0][:4])
	assert.Equal(t, "hand_annotator_os_family", rows[0][9])
	assert.Equal(t, []string{"10.0.0.1", "true", "server", "", "linux", "", "", "server"}, rows[1][:8])
	assert.Equal(t, "false", rows[2][1])

	require.NoError(t, WriteIPList(path, records, nil, ';'))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "ip_address;possible_NAT;final_annotation_group"))
}

func TestWriteAnnotatedDataset(t *testing.T) {
	ds, err := flow.Read(strings.NewReader("src_ip,bytes\n10.0.0.1,100\n10.0.0.2,200\nbogus,1\n10.0.0.1\n"), ',')
	require.NoError(t, err)

	finals := map[string]domain.Annotation{
		"10.0.0.1": {Group: "server", OSVersion: "10"},
	}
	path := filepath.Join(t.TempDir(), "annotated.csv")
	n, err := WriteAnnotatedDataset(path, ds, "src_ip", finals, ',')
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows := readCSV(t, path)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"src_ip", "bytes", "group", "class", "os_family", "os_type", "os_version"}, rows[0])
	assert.Equal(t, []string{"10.0.0.1", "100", "server", "", "", "", "10"}, rows[1])
	assert.Equal(t, []string{"10.0.0.2", "200", "", "", "", "", ""}, rows[2])
	assert.Equal(t, []string{"10.0.0.1", "", "server", "", "", "", "10"}, rows[4], "short rows are padded")

	_, err = WriteAnnotatedDataset(path, ds, "missing", finals, ',')
	assert.ErrorIs(t, err, flow.ErrMissingColumn)
}
