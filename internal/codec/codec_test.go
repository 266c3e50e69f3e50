package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daf/internal/domain"
)

func sampleSnapshot() domain.Snapshot {
	return domain.Snapshot{
		"10.0.0.1": {
			Final: domain.Annotation{Group: "server", Class: "web", OSFamily: "linux", OSType: "ubuntu", OSVersion: "22.04"},
			Annotations: map[string]domain.Annotation{
				"hand_annotator":    {Group: "server", Class: "web"},
				"sni_annotator_sni": {OSFamily: "linux", OSType: "ubuntu"},
			},
		},
		"10.0.0.2": {
			Final: domain.Annotation{Group: "end-device"},
			Flags: domain.Flags{domain.FlagHandMiss, domain.FlagMultiDevice, domain.FlagOneMiss},
			OneMiss: []domain.OneMiss{
				{Field: domain.FieldOSFamily, Accepted: "windows", AcceptedCount: 2, Outlier: "linux"},
			},
			HandMiss: []domain.HandMiss{
				{Field: domain.FieldGroup, Hand: "end-device", Voted: "server"},
				{Field: domain.FieldClass, Hand: "workstation"},
			},
			MultiDevice: []domain.MultiDevice{
				{Source: "NAT_detector", Evidence: []string{"ttl=64:10", "src_ports=900"}},
				{Source: "MAC"},
			},
		},
		"2001:db8::1": {},
	}
}

func TestRoundTrip(t *testing.T) {
	codecs := []Codec{NewJSONCodec(), NewYAMLCodec()}
	snapshots := map[string]domain.Snapshot{
		"sample": sampleSnapshot(),
		"empty":  {},
	}

	for _, c := range codecs {
		for name, snapshot := range snapshots {
			t.Run(c.Format()+"/"+name, func(t *testing.T) {
				var buf bytes.Buffer
				require.NoError(t, c.Encode(snapshot, &buf))

				decoded, err := c.Decode(&buf)
				require.NoError(t, err)
				assert.Equal(t, snapshot, decoded)
			})
		}
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	for _, c := range []Codec{NewJSONCodec(), NewYAMLCodec()} {
		t.Run(c.Format(), func(t *testing.T) {
			var a, b bytes.Buffer
			require.NoError(t, c.Encode(sampleSnapshot(), &a))
			require.NoError(t, c.Encode(sampleSnapshot(), &b))
			assert.Equal(t, a.String(), b.String())
		})
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		codec Codec
		input string
	}{
		{"json syntax", NewJSONCodec(), `{"10.0.0.1": {`},
		{"json unknown key", NewJSONCodec(), `{"10.0.0.1": {"final_annotation": {}, "bogus": 1}}`},
		{"json wrong type", NewJSONCodec(), `{"10.0.0.1": {"flags": "multi_device"}}`},
		{"json trailing", NewJSONCodec(), `{} {}`},
		{"yaml syntax", NewYAMLCodec(), "10.0.0.1: [unclosed"},
		{"yaml unknown key", NewYAMLCodec(), "10.0.0.1:\n  bogus: 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.codec.Decode(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestForPath(t *testing.T) {
	c, err := ForPath("out/data_ip_data.json")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Format())

	c, err = ForPath("snapshot.YML")
	require.NoError(t, err)
	assert.Equal(t, "yaml", c.Format())

	_, err = ForPath("snapshot.db")
	assert.Error(t, err)
}

func TestAnsibleExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewAnsibleCodec().Export(sampleSnapshot(), &buf))
	out := buf.String()

	assert.Contains(t, out, "server:")
	assert.Contains(t, out, "end_device:")
	assert.Contains(t, out, UnannotatedGroup+":")
	assert.Contains(t, out, "ip_10_0_0_1:")
	assert.Contains(t, out, "ansible_host: 10.0.0.1")
	assert.Contains(t, out, "daf_os_type: ubuntu")

	parsed, err := NewAnsibleCodec().Parse(&buf)
	require.NoError(t, err)
	require.Len(t, parsed, 3)
	assert.Equal(t, sampleSnapshot()["10.0.0.1"].Final, parsed["10.0.0.1"].Final)
	assert.Equal(t, sampleSnapshot()["10.0.0.2"].Flags, parsed["10.0.0.2"].Flags)
}
