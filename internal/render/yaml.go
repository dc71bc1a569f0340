package render

import (
	"io"

	"db-graph/internal/graph"

	"gopkg.in/yaml.v3"
)

// WriteYAML writes the same summary as XML plus both orders and the deferred
// constraint names.
func WriteYAML(w io.Writer, snap *graph.Snapshot, opts Options) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newSummary(snap, opts)); err != nil {
		return err
	}
	return enc.Close()
}
