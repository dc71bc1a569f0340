package render

import (
	"bufio"
	"io"

	"db-graph/internal/graph"
	"db-graph/internal/schema"
)

const (
	InsertionOrderFile = "insertionOrder.txt"
	DeletionOrderFile  = "deletionOrder.txt"
)

// WriteOrder writes one table identity per line.
func WriteOrder(w io.Writer, snap *graph.Snapshot, keys []schema.TableKey) error {
	bw := bufio.NewWriter(w)
	for _, k := range keys {
		if _, err := bw.WriteString(DisplayName(snap, k) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
