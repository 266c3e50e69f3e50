package filestore

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daf/internal/domain"
)

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	snapshot := domain.Snapshot{
		"10.0.0.1": {
			Final:       domain.Annotation{Group: "server", OSFamily: "linux"},
			Flags:       domain.Flags{domain.FlagMultiDevice},
			MultiDevice: []domain.MultiDevice{{Source: "NAT_detector", Evidence: []string{"src_ports=700"}}},
		},
	}

	for _, name := range []string{"data_ip_data.json", "data.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			s, err := New(path)
			require.NoError(t, err)
			defer s.Close()

			require.NoError(t, s.Save(ctx, snapshot))
			loaded, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, snapshot, loaded)

			entries, err := os.ReadDir(filepath.Dir(path))
			require.NoError(t, err)
			assert.Len(t, entries, 1, "temporary file is removed")
		})
	}
}

func TestLoadMissing(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	s, err := New(path)
	require.NoError(t, err)

	_, err = s.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, fs.ErrNotExist)
}

func TestNewUnknownExtension(t *testing.T) {
	_, err := New("snapshot.txt")
	assert.Error(t, err)
}
