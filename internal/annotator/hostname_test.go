package annotator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daf/internal/config"
	"daf/internal/domain"
)

func hostnameAnnotator(t *testing.T) *HostnameAnnotator {
	t.Helper()
	h, err := LoadHostnameRules(
		writeFile(t, "full.csv", "hostname,group,class,os-family,os-type,os-version\nmail.example.org,server,mail,linux,debian,\n"),
		writeFile(t, "seq.csv", "sequence,group,class,os-family,os-type,os-version\nvpn,server,vpn,,,\nprinter,end-device,printer,,,\nwww,server,web,,,\nweb,server,web,,,\nap,net-device,wap,,,\n"),
		writeFile(t, "sub.csv", "subsequence,group,class,os-family,os-type,os-version\nlaptop,end-device,workstation,,,\niphone,end-device,mobile,macos,ios,\n"),
	)
	require.NoError(t, err)
	return h
}

func TestHostnameClassify(t *testing.T) {
	h := hostnameAnnotator(t)

	tests := []struct {
		name     string
		hostname string
		want     []domain.Annotation
	}{
		{"full match", "mail.example.org.", []domain.Annotation{{Group: "server", Class: "mail", OSFamily: "linux", OSType: "debian"}}},
		{"single sequence", "vpn.example.org", []domain.Annotation{{Group: "server", Class: "vpn"}}},
		{"agreeing sequences", "www.web.example.org", []domain.Annotation{{Group: "server", Class: "web"}}},
		{"same group different class", "host.vpn.www.example.org", []domain.Annotation{{Group: "server"}}},
		{"conflicting groups", "printer.vpn.example.org", nil},
		{"subsequence", "johns-iphone.lan", []domain.Annotation{{Group: "end-device", Class: "mobile", OSFamily: "macos", OSType: "ios"}}},
		{"sequence as subsequence", "office-printer2.lan", []domain.Annotation{{Group: "end-device", Class: "printer"}}},
		{"no match", "host-17.example.org", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.Classify(tt.hostname))
		})
	}
}

func TestHostnameAnnotate(t *testing.T) {
	h := hostnameAnnotator(t)
	h.lookup = func(_ context.Context, addr string) ([]string, error) {
		switch addr {
		case "10.0.0.1":
			return []string{"mail.example.org."}, nil
		case "10.0.0.2":
			return nil, errors.New("no such host")
		}
		return []string{"unknown.example.org."}, nil
	}

	rec := runAnnotator(t, h, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, nil)
	assert.Len(t, rec.proposals, 1)
	assert.Equal(t, "mail", rec.proposals["10.0.0.1"][0].Class)
}

func TestNewHostnameAnnotatorRequiresDatabases(t *testing.T) {
	_, err := NewHostnameAnnotator(config.AnnotatorConfig{Name: "hostname_annotator"}, config.DAFConfig{})
	assert.ErrorIs(t, err, config.ErrMissingSetting)
}
