package graph

import (
	"fmt"
	"strings"

	"db-graph/internal/schema"
)

// GraphIntegrityError reports an internal invariant violation: the NORMAL edges could
// not be made acyclic, or ordering failed to place every table. It indicates a bug in
// the resolver, not bad input.
type GraphIntegrityError struct {
	Tables []schema.TableKey
	Reason string
}

func (e *GraphIntegrityError) Error() string {
	if len(e.Tables) == 0 {
		return "graph integrity: " + e.Reason
	}
	names := make([]string, len(e.Tables))
	for i, k := range e.Tables {
		names[i] = k.String()
	}
	return fmt.Sprintf("graph integrity: %s [%s]", e.Reason, strings.Join(names, ", "))
}
