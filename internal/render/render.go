// Package render writes documentation artifacts from a published snapshot: the two
// order listings, XML and YAML summaries, Graphviz diagrams and HTML pages. Renderers
// only read the snapshot and may run concurrently.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"db-graph/internal/graph"
	"db-graph/internal/schema"

	"golang.org/x/sync/errgroup"
)

type Options struct {
	Version      string
	DatabaseType string
	// DotVersion goes into the "// dot" header line of diagrams.
	DotVersion string
	Generated  time.Time
	Workers    int
	// Progress is called once per written file, possibly from several goroutines.
	Progress func(path string)

	files *FileNames
}

// fileNames returns the names fixed by Render, or computes them for a single writer call.
func (o Options) fileNames(snap *graph.Snapshot) *FileNames {
	if o.files != nil {
		return o.files
	}
	return NewFileNames(snap)
}

// task renders one file relative to the output directory.
type task struct {
	path   string
	render func(buf *bytes.Buffer) error
}

func plan(snap *graph.Snapshot, opts Options) []task {
	db := snap.Database()
	files := opts.files
	tasks := []task{
		{InsertionOrderFile, func(b *bytes.Buffer) error { return WriteOrder(b, snap, snap.InsertionOrder()) }},
		{DeletionOrderFile, func(b *bytes.Buffer) error { return WriteOrder(b, snap, snap.DeletionOrder()) }},
		{fmt.Sprintf("%s.%s.xml", db.Name, db.Schema), func(b *bytes.Buffer) error { return WriteXML(b, snap, opts) }},
		{fmt.Sprintf("%s.%s.yaml", db.Name, db.Schema), func(b *bytes.Buffer) error { return WriteYAML(b, snap, opts) }},
		{SummaryDiagramFile, func(b *bytes.Buffer) error { return WriteSummaryDot(b, snap, opts) }},
		{"index.html", func(b *bytes.Buffer) error { return WriteIndexPage(b, snap, opts) }},
		{"orders.html", func(b *bytes.Buffer) error { return WriteOrdersPage(b, snap, opts) }},
	}
	for _, t := range snap.Tables() {
		key := t.Key()
		tasks = append(tasks,
			task{files.Diagram(key), func(b *bytes.Buffer) error { return WriteTableDot(b, snap, key, opts) }},
			task{files.Page(key), func(b *bytes.Buffer) error { return WriteTablePage(b, snap, key, opts) }},
		)
	}
	return tasks
}

// Count returns how many files Render will write.
func Count(snap *graph.Snapshot) int {
	return 7 + 2*len(snap.Tables())
}

// Render writes every artifact into dir. Files are first written to a temporary
// directory next to dir and only moved into place once all of them succeeded, so a
// failed run leaves dir as it was.
func Render(ctx context.Context, snap *graph.Snapshot, dir string, opts Options) error {
	if opts.Generated.IsZero() {
		opts.Generated = time.Now()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	opts.files = NewFileNames(snap)

	dir = filepath.Clean(dir)
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return err
	}
	staging, err := os.MkdirTemp(filepath.Dir(dir), "."+filepath.Base(dir)+"-*")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := renderInto(ctx, snap, staging, opts); err != nil {
		return err
	}
	return publish(staging, dir)
}

func renderInto(ctx context.Context, snap *graph.Snapshot, dir string, opts Options) error {
	eg, ctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		eg.SetLimit(opts.Workers)
	}

	for _, t := range plan(snap, opts) {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			var buf bytes.Buffer
			if err := t.render(&buf); err != nil {
				return fmt.Errorf("render %s: %w", t.path, err)
			}
			full := filepath.Join(dir, filepath.FromSlash(t.path))
			if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(full, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", full, err)
			}
			if opts.Progress != nil {
				opts.Progress(t.path)
			}
			return nil
		})
	}
	return eg.Wait()
}

// publish moves the staged tree to dir. A missing dir is replaced in one rename;
// otherwise files are moved one by one and unrelated files in dir are kept.
func publish(staging, dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.Chmod(staging, 0o755); err != nil {
			return err
		}
		if err := os.Rename(staging, dir); err != nil {
			return fmt.Errorf("publish %s: %w", dir, err)
		}
		return nil
	}

	log.Printf("Replacing generated files in existing directory %s", dir)
	return filepath.WalkDir(staging, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(staging, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.Rename(p, target)
	})
}

// DisplayName is the table identity written to listings and pages: the bare name for
// tables in the documented schema, schema-qualified otherwise.
func DisplayName(snap *graph.Snapshot, key schema.TableKey) string {
	if key.Schema == snap.Database().Schema {
		return key.Name
	}
	return key.String()
}
