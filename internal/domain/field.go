package domain

import "strings"

// Field is one taxonomy dimension of a device annotation
type Field string

const (
	FieldGroup     Field = "group"
	FieldClass     Field = "class"
	FieldOSFamily  Field = "os-family"
	FieldOSType    Field = "os-type"
	FieldOSVersion Field = "os-version"
)

// Fields lists every taxonomy field in export order
var Fields = []Field{
	FieldGroup,
	FieldClass,
	FieldOSFamily,
	FieldOSType,
	FieldOSVersion,
}

// Valid returns true if f belongs to the closed taxonomy field set
func (f Field) Valid() bool {
	for _, known := range Fields {
		if f == known {
			return true
		}
	}
	return false
}

// ParseField accepts both the dashed form ("os-family") and the
// underscore form used by CSV databases ("os_family")
func ParseField(s string) (Field, bool) {
	f := Field(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	return f, f.Valid()
}

// NormalizeLabel trims and lower-cases a tag value; an empty result means "no value"
func NormalizeLabel(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
