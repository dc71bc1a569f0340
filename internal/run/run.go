// Package run holds the state of one documentation run: where the metadata came from,
// the validated model and the published snapshot. Runs share nothing, so several can
// execute in the same process.
package run

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"db-graph/internal/dialect"
	"db-graph/internal/graph"
	"db-graph/internal/schema"

	"github.com/google/uuid"
)

// Source produces a complete schema model. Implementations must return either a fully
// merged model or an error, never a partial model.
type Source interface {
	Load(ctx context.Context) (*schema.Database, error)
}

// SQLSource reads the catalog of a live database through a Dialect.
type SQLSource struct {
	DB       *sql.DB
	Dialect  dialect.Dialect
	Database string
	Schema   string
}

func (s *SQLSource) Load(ctx context.Context) (*schema.Database, error) {
	return schema.Analyze(ctx, s.DB, s.Dialect, s.Database, s.Schema)
}

// StaticSource serves tables that are already in memory.
type StaticSource struct {
	Database string
	Schema   string
	Tables   []*schema.Table
}

func (s *StaticSource) Load(ctx context.Context) (*schema.Database, error) {
	return schema.NewDatabase(s.Database, s.Schema, s.Tables)
}

type Run struct {
	ID       uuid.UUID
	Started  time.Time
	Database *schema.Database
	Snapshot *graph.Snapshot
}

// New loads the model from src and resolves it. A non-zero timeout bounds acquisition
// only; resolution itself is a bounded in-memory computation.
func New(ctx context.Context, src Source, timeout time.Duration) (*Run, error) {
	r := &Run{ID: uuid.New(), Started: time.Now()}

	loadCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	db, err := src.Load(loadCtx)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	r.Database = db

	snap, err := graph.Resolve(db)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", db.Schema, err)
	}
	r.Snapshot = snap

	log.Printf("[%s] Resolved %d tables, %d relationships (%d deferred) in %s",
		r.ID, len(db.Tables), len(snap.Edges()), len(snap.Deferred()), time.Since(r.Started).Round(time.Millisecond))
	return r, nil
}
