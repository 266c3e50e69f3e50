package config

import (
	"time"
)

// Config is the complete DAF configuration
type Config struct {
	DAF        DAFConfig         `yaml:"daf"`
	Annotators []AnnotatorConfig `yaml:"annotators"`
}

// DAFConfig holds the framework-wide settings consumed by the core
type DAFConfig struct {
	// MinAnnotationCount is the minimum number of proposals a value needs
	MinAnnotationCount int `yaml:"min_annotation_count"`
	// MinAnnotatorsCount is the minimum number of distinct annotators a value needs
	MinAnnotatorsCount int `yaml:"min_annotators_count"`

	SrcIPField   string `yaml:"src_ip_field"`
	DstIPField   string `yaml:"dst_ip_field,omitempty"`
	SrcPortField string `yaml:"src_port_field,omitempty"`
	// IPRanges is "ALL" or a CSV file of protected addresses and networks
	IPRanges  string `yaml:"ip_ranges"`
	Delimiter string `yaml:"delimiter,omitempty"`

	// Threads runs annotators concurrently when true, sequentially otherwise
	Threads bool `yaml:"threads"`
	// DataExport gates snapshot persistence
	DataExport           bool `yaml:"data_export"`
	ExportFullAnnotation bool `yaml:"export_full_annotation"`
	// ConflictMarksMultiDevice records a multi-device signal for unresolved
	// conflicts on group, os-family and os-type
	ConflictMarksMultiDevice bool `yaml:"conflict_marks_multi_device"`

	OSTaxonomyPath     string `yaml:"os_taxonomy_path,omitempty"`
	DeviceTaxonomyPath string `yaml:"device_taxonomy_path,omitempty"`

	// KeepRuns bounds the runs kept in a SQLite snapshot; zero keeps all
	KeepRuns int `yaml:"keep_runs,omitempty"`

	// InventoryExport writes an Ansible inventory of annotated IPs when set
	InventoryExport string `yaml:"inventory_export,omitempty"`
}

// AnnotatorConfig holds configuration for one annotator instance
type AnnotatorConfig struct {
	// Name selects the registered annotator implementation
	Name string `yaml:"name"`
	// Enabled determines if the annotator should run
	Enabled bool `yaml:"enabled"`
	// Timeout bounds a single annotator run; zero means no limit
	Timeout Duration `yaml:"timeout,omitempty"`
	// Settings holds annotator-specific configuration
	Settings map[string]any `yaml:"settings,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
