package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daf/internal/domain"
)

func testChecker() *Checker {
	return New(
		map[string][]string{
			"windows": {"desktop", "server"},
			"linux":   {"debian", "ubuntu", "android"},
		},
		map[string][]string{
			"end-device": {"pc", "mobile"},
			"server":     {"web-server", "mail-server"},
		},
	)
}

func TestCheck(t *testing.T) {
	c := testChecker()

	tests := []struct {
		name  string
		check func() bool
		want  bool
	}{
		{"os family only", func() bool { return c.CheckOS("linux", "") }, true},
		{"os pair", func() bool { return c.CheckOS("windows", "server") }, true},
		{"os wrong type", func() bool { return c.CheckOS("windows", "ubuntu") }, false},
		{"os unknown family", func() bool { return c.CheckOS("macos", "") }, false},
		{"os empty family", func() bool { return c.CheckOS("", "server") }, false},
		{"device pair", func() bool { return c.CheckDevice("end-device", "pc") }, true},
		{"device wrong class", func() bool { return c.CheckDevice("server", "pc") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check())
		})
	}
}

func TestValidate(t *testing.T) {
	c := testChecker()

	t.Run("valid annotation unchanged", func(t *testing.T) {
		in := domain.NewAnnotation("end-device", "pc", "windows", "desktop", "10")
		out, rejected := c.Validate(in)
		assert.Equal(t, in, out)
		assert.Empty(t, rejected)
	})

	t.Run("invalid OS cleared, device kept", func(t *testing.T) {
		in := domain.NewAnnotation("end-device", "mobile", "linx", "android", "12")
		out, rejected := c.Validate(in)
		assert.Equal(t, domain.Annotation{Group: "end-device", Class: "mobile"}, out)
		require.Len(t, rejected, 1)
		assert.Contains(t, rejected[0], `"linux"`)
	})

	t.Run("invalid device cleared", func(t *testing.T) {
		in := domain.Annotation{Group: "server", Class: "pc"}
		out, rejected := c.Validate(in)
		assert.True(t, out.IsEmpty())
		require.Len(t, rejected, 1)
	})

	t.Run("version without family dropped", func(t *testing.T) {
		out, rejected := c.Validate(domain.Annotation{OSVersion: "7"})
		assert.True(t, out.IsEmpty())
		assert.Len(t, rejected, 1)
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	osPath := filepath.Join(dir, "os.json")
	devPath := filepath.Join(dir, "device.json")
	require.NoError(t, os.WriteFile(osPath, []byte(`{"Linux": ["Ubuntu"]}`), 0644))
	require.NoError(t, os.WriteFile(devPath, []byte(`{"server": ["web-server"]}`), 0644))

	c, err := Load(osPath, devPath)
	require.NoError(t, err)
	assert.True(t, c.CheckOS("linux", "ubuntu"))
	assert.Equal(t, []string{"linux"}, c.Labels("os"))
	assert.Equal(t, []string{"server"}, c.Labels("device"))

	require.NoError(t, os.WriteFile(devPath, []byte(`not json`), 0644))
	_, err = Load(osPath, devPath)
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.json"), devPath)
	assert.Error(t, err)
}
