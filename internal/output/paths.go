// Package output writes the CSV results of a run.
package output

import (
	"path/filepath"
	"strings"
)

// Paths names every file a run produces
type Paths struct {
	IPList    string
	Annotated string
	Snapshot  string
	Inventory string
}

func trimExt(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// PathsFor derives output names from the dataset and the reannotation
// snapshot. Either may be empty, not both. A SQLite snapshot is updated in
// place; file snapshots get an "_updated" sibling unless they already are one.
func PathsFor(dataset, reannotation string) Paths {
	var p Paths
	if dataset != "" {
		p.Annotated = trimExt(dataset) + "_annotated.csv"
	}

	if reannotation == "" {
		p.IPList = trimExt(dataset) + "_ip_annotation_list.csv"
		p.Snapshot = trimExt(dataset) + "_ip_data.json"
		return p
	}

	base := trimExt(reannotation)
	if dataset != "" {
		p.IPList = trimExt(dataset) + "_ip_annotation_list_reannotation.csv"
	} else {
		p.IPList = base + "_ip_annotation_list_reannotation.csv"
	}

	switch ext := strings.ToLower(filepath.Ext(reannotation)); ext {
	case ".db", ".sqlite", ".sqlite3":
		p.Snapshot = reannotation
	default:
		switch {
		case strings.HasSuffix(base, "_ip_data_updated"):
			p.Snapshot = reannotation
		case strings.HasSuffix(base, "_ip_data"):
			p.Snapshot = base + "_updated" + filepath.Ext(reannotation)
		default:
			p.Snapshot = base + "_ip_data_updated" + filepath.Ext(reannotation)
		}
	}
	return p
}
