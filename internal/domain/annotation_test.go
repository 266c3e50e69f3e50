package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAnnotationNormalizes(t *testing.T) {
	a := NewAnnotation(" End-Device ", "Mobile", "ANDROID", "", "  ")

	assert.Equal(t, "end-device", a.Group)
	assert.Equal(t, "mobile", a.Class)
	assert.Equal(t, "android", a.OSFamily)
	assert.Empty(t, a.OSType)
	assert.Empty(t, a.OSVersion)
	assert.False(t, a.IsEmpty())
	assert.True(t, Annotation{}.IsEmpty())
}

func TestAnnotationGetSet(t *testing.T) {
	var a Annotation
	for i, f := range Fields {
		a.Set(f, string(rune('a'+i)))
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, a.Values())
	assert.Equal(t, "c", a.Get(FieldOSFamily))
	assert.Empty(t, a.Get(Field("vendor")))
}

func TestParseField(t *testing.T) {
	tests := []struct {
		in    string
		want  Field
		valid bool
	}{
		{"group", FieldGroup, true},
		{"os_family", FieldOSFamily, true},
		{"OS-Type", FieldOSType, true},
		{" os_version ", FieldOSVersion, true},
		{"vendor", Field("vendor"), false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseField(tt.in)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProposalsFrom(t *testing.T) {
	props := ProposalsFrom("mac_annotator", Annotation{Group: "end-device", OSFamily: "Android"})

	assert.Equal(t, []Proposal{
		{Annotator: "mac_annotator", Field: FieldGroup, Value: "end-device"},
		{Annotator: "mac_annotator", Field: FieldOSFamily, Value: "android"},
	}, props)
	assert.Nil(t, ProposalsFrom("x", Annotation{}))
}

func TestSummarizeProposals(t *testing.T) {
	t.Run("most frequent value per annotator and field", func(t *testing.T) {
		summary := SummarizeProposals([]Proposal{
			{"sni", FieldOSFamily, "linux"},
			{"sni", FieldOSFamily, "windows"},
			{"sni", FieldOSFamily, "windows"},
			{"ua", FieldOSFamily, "linux"},
			{"ua", FieldOSType, "ubuntu"},
		})

		assert.Equal(t, map[string]Annotation{
			"sni": {OSFamily: "windows"},
			"ua":  {OSFamily: "linux", OSType: "ubuntu"},
		}, summary)
	})

	t.Run("first seen wins ties", func(t *testing.T) {
		summary := SummarizeProposals([]Proposal{
			{"sni", FieldOSFamily, "macos"},
			{"sni", FieldOSFamily, "linux"},
		})
		assert.Equal(t, "macos", summary["sni"].OSFamily)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Nil(t, SummarizeProposals(nil))
		assert.Nil(t, SummarizeProposals([]Proposal{{"x", FieldGroup, ""}}))
	})
}
