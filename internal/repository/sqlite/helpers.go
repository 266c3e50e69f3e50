package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"daf/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalJSONField safely unmarshals JSON from nullable string into target
func unmarshalJSONField(ns sql.NullString, target interface{}) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalToNull marshals v to a nullable JSON string.
// Nil, empty slices and empty maps are stored as NULL.
func marshalToNull(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	switch string(data) {
	case "null", "[]", "{}":
		return sql.NullString{}, nil
	}
	return stringToNull(string(data)), nil
}

// ============================================================================
// Entry Row Scanner
// ============================================================================
//
// CRITICAL: Column order must match between:
// - entryColumns constant
// - scanArgs() return slice
// - entryInsertArgs() return slice

// entryRow holds all columns from an entry query for scanning
type entryRow struct {
	RunID           string
	Address         string
	FinalJSON       string
	FlagsJSON       sql.NullString
	OneMissJSON     sql.NullString
	HandMissJSON    sql.NullString
	MultiDeviceJSON sql.NullString
	AnnotationsJSON sql.NullString
}

// scanArgs returns pointers to all fields for sql.Scan()
func (r *entryRow) scanArgs() []interface{} {
	return []interface{}{
		&r.RunID,           // 1
		&r.Address,         // 2
		&r.FinalJSON,       // 3
		&r.FlagsJSON,       // 4
		&r.OneMissJSON,     // 5
		&r.HandMissJSON,    // 6
		&r.MultiDeviceJSON, // 7
		&r.AnnotationsJSON, // 8
	}
}

// toDomain converts the scanned row to a domain.Entry
func (r *entryRow) toDomain() (domain.Entry, error) {
	var entry domain.Entry

	if err := json.Unmarshal([]byte(r.FinalJSON), &entry.Final); err != nil {
		return entry, fmt.Errorf("unmarshal final annotation: %w", err)
	}
	if err := unmarshalJSONField(r.FlagsJSON, &entry.Flags); err != nil {
		return entry, fmt.Errorf("unmarshal flags: %w", err)
	}
	if err := unmarshalJSONField(r.OneMissJSON, &entry.OneMiss); err != nil {
		return entry, fmt.Errorf("unmarshal one_miss: %w", err)
	}
	if err := unmarshalJSONField(r.HandMissJSON, &entry.HandMiss); err != nil {
		return entry, fmt.Errorf("unmarshal hand_miss: %w", err)
	}
	if err := unmarshalJSONField(r.MultiDeviceJSON, &entry.MultiDevice); err != nil {
		return entry, fmt.Errorf("unmarshal multi_device: %w", err)
	}
	if err := unmarshalJSONField(r.AnnotationsJSON, &entry.Annotations); err != nil {
		return entry, fmt.Errorf("unmarshal annotations: %w", err)
	}

	return entry, nil
}

// entryColumns returns the column list for entry queries
const entryColumns = `run_id, address, final, flags, one_miss, hand_miss, multi_device, annotations`

// ============================================================================
// Entry Write Helpers
// ============================================================================

// entryInsertArgs prepares arguments for entry INSERT
func entryInsertArgs(runID, addr string, e domain.Entry) ([]interface{}, error) {
	final, err := json.Marshal(e.Final)
	if err != nil {
		return nil, fmt.Errorf("marshal final annotation: %w", err)
	}

	args := []interface{}{runID, addr, string(final)}
	for _, v := range []interface{}{e.Flags, e.OneMiss, e.HandMiss, e.MultiDevice, e.Annotations} {
		ns, err := marshalToNull(v)
		if err != nil {
			return nil, err
		}
		args = append(args, ns)
	}
	return args, nil
}
