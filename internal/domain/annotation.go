package domain

// Annotation holds at most one value per taxonomy field.
// Empty strings mean the field is not annotated.
type Annotation struct {
	Group     string `json:"group,omitempty" yaml:"group,omitempty"`
	Class     string `json:"class,omitempty" yaml:"class,omitempty"`
	OSFamily  string `json:"os_family,omitempty" yaml:"os_family,omitempty"`
	OSType    string `json:"os_type,omitempty" yaml:"os_type,omitempty"`
	OSVersion string `json:"os_version,omitempty" yaml:"os_version,omitempty"`
}

// NewAnnotation creates an annotation with normalized labels
func NewAnnotation(group, class, osFamily, osType, osVersion string) Annotation {
	return Annotation{
		Group:     NormalizeLabel(group),
		Class:     NormalizeLabel(class),
		OSFamily:  NormalizeLabel(osFamily),
		OSType:    NormalizeLabel(osType),
		OSVersion: NormalizeLabel(osVersion),
	}
}

// Get returns the value of a single field
func (a Annotation) Get(f Field) string {
	switch f {
	case FieldGroup:
		return a.Group
	case FieldClass:
		return a.Class
	case FieldOSFamily:
		return a.OSFamily
	case FieldOSType:
		return a.OSType
	case FieldOSVersion:
		return a.OSVersion
	}
	return ""
}

// Set replaces the value of a single field
func (a *Annotation) Set(f Field, value string) {
	switch f {
	case FieldGroup:
		a.Group = value
	case FieldClass:
		a.Class = value
	case FieldOSFamily:
		a.OSFamily = value
	case FieldOSType:
		a.OSType = value
	case FieldOSVersion:
		a.OSVersion = value
	}
}

// IsEmpty returns true if no field carries a value
func (a Annotation) IsEmpty() bool {
	return a == Annotation{}
}

// Values returns the field values in Fields order
func (a Annotation) Values() []string {
	values := make([]string, 0, len(Fields))
	for _, f := range Fields {
		values = append(values, a.Get(f))
	}
	return values
}
