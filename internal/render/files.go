package render

import (
	"path"
	"strconv"
	"strings"

	"db-graph/internal/graph"
	"db-graph/internal/schema"
)

// FileNames assigns every table a file stem that no other table shares, even on
// case-insensitive filesystems. Tables are visited in key order, so the first table
// keeps the plain stem and later ones get a numeric suffix.
type FileNames struct {
	stems map[schema.TableKey]string
}

func NewFileNames(snap *graph.Snapshot) *FileNames {
	f := &FileNames{stems: make(map[schema.TableKey]string)}
	used := make(map[string]bool)
	for _, t := range snap.Tables() {
		key := t.Key()
		base := fileSafe(DisplayName(snap, key))
		stem := base
		for n := 2; used[strings.ToLower(stem)]; n++ {
			stem = base + "_" + strconv.Itoa(n)
		}
		used[strings.ToLower(stem)] = true
		f.stems[key] = stem
	}
	return f
}

// Page is the path of the page describing key, relative to the output directory.
func (f *FileNames) Page(key schema.TableKey) string {
	return path.Join("tables", f.stems[key]+".html")
}

// Diagram is the path of the diagram showing key and its direct neighbours.
func (f *FileNames) Diagram(key schema.TableKey) string {
	return path.Join("diagrams", "tables", f.stems[key]+".1degree.dot")
}

func fileSafe(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(name)
}
