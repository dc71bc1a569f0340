package render

import (
	"encoding/xml"
	"io"

	"db-graph/internal/graph"
)

// WriteXML writes the database summary: tables, columns and the parent/child
// relations of every column.
func WriteXML(w io.Writer, snap *graph.Snapshot, opts Options) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(newSummary(snap, opts)); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
