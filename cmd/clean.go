package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"db-graph/internal/dialect"
	"db-graph/internal/graph"

	"github.com/spf13/cobra"
)

var dryRun bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete all rows from every table in deletion order",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		if dryRun {
			log.Println("[SIMULATION] Dry-Run Mode Active: No data will be deleted.")
			for i, q := range cleanStatements(s.Run.Snapshot, s.Dialect) {
				fmt.Printf("[%02d] %s;\n", i+1, q)
			}
			return nil
		}
		return cleanDatabase(cmd.Context(), s.DB, s.Dialect, s.Run.Snapshot)
	},
}

func init() {
	RootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the statements without executing them")
}

// cleanStatements lists one DELETE per table of the documented schema, children
// before parents. Tables of other schemas are left alone.
func cleanStatements(snap *graph.Snapshot, d dialect.Dialect) []string {
	var out []string
	schemaName := snap.Database().Schema
	for _, k := range snap.DeletionOrder() {
		if k.Schema != schemaName {
			log.Printf("Skipping %s: outside schema %s", k, schemaName)
			continue
		}
		out = append(out, d.DeleteQuery(k.Name))
	}
	return out
}

// cleanDatabase deletes in deletion order inside one transaction. Rows linked only
// through deferred constraints rely on the dialect's BeforeClean hook.
func cleanDatabase(ctx context.Context, db *sql.DB, d dialect.Dialect, snap *graph.Snapshot) error {
	queries := cleanStatements(snap, d)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if tx != nil {
			tx.Rollback()
		}
	}()

	if len(snap.Deferred()) > 0 {
		log.Printf("%d deferred constraint(s), disabling Foreign Key Checks...", len(snap.Deferred()))
	}
	if err := d.BeforeClean(ctx, tx); err != nil {
		return fmt.Errorf("failed to prepare clean: %w", err)
	}

	total := len(queries)
	for i, q := range queries {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to clean (%s): %w", q, err)
		}
		if count := i + 1; count%5 == 0 || count == total {
			log.Printf("Cleaned %d/%d tables...", count, total)
		}
	}

	if err := d.AfterClean(ctx, tx); err != nil {
		return fmt.Errorf("failed to restore constraints: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cleaning transaction: %w", err)
	}
	tx = nil

	log.Println("Database Cleaned Successfully!")
	return nil
}
