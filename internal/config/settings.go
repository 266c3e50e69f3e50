package config

import (
	"fmt"
	"strconv"
	"time"
)

// Require checks that every key is present in the annotator settings
func (a AnnotatorConfig) Require(keys ...string) error {
	for _, k := range keys {
		v, ok := a.Settings[k]
		if !ok || v == nil || v == "" {
			return fmt.Errorf("%s: %w: %s", a.Name, ErrMissingSetting, k)
		}
	}
	return nil
}

// String returns a string setting or "" when absent
func (a AnnotatorConfig) String(key string) string {
	switch v := a.Settings[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// StringSlice returns a list setting; a scalar becomes a one-element list
func (a AnnotatorConfig) StringSlice(key string) []string {
	switch v := a.Settings[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// Int returns an integer setting or def when absent or malformed
func (a AnnotatorConfig) Int(key string, def int) int {
	switch v := a.Settings[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Bool returns a boolean setting or def when absent
func (a AnnotatorConfig) Bool(key string, def bool) bool {
	switch v := a.Settings[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// DurationSetting returns a duration setting ("10s" or seconds as a number)
func (a AnnotatorConfig) DurationSetting(key string, def time.Duration) time.Duration {
	switch v := a.Settings[key].(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case int:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	}
	return def
}
