package cmd

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"db-graph/internal/render"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Write order listings, summaries, diagrams and HTML pages for the schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		snap := s.Run.Snapshot
		out := s.Settings.Output
		log.Printf("Writing documentation to %s...", out)
		start := time.Now()

		uiprogress.Start()
		bar := uiprogress.AddBar(render.Count(snap)).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return "Rendering: "
		})

		err = render.Render(cmd.Context(), snap, out, render.Options{
			Version:      Version,
			DatabaseType: s.Dialect.Name(),
			Generated:    s.Run.Started,
			Workers:      s.Settings.Workers,
			Progress:     func(string) { bar.Incr() },
		})
		uiprogress.Stop()
		if err != nil {
			return err
		}

		fmt.Println("\n📊 Summary Report:")
		fmt.Printf("Tables:        %d\n", len(snap.Tables()))
		fmt.Printf("Relationships: %d (%d deferred)\n", len(snap.Edges()), len(snap.Deferred()))
		fmt.Printf("Insertion:     %s\n", filepath.Join(out, render.InsertionOrderFile))
		fmt.Printf("Deletion:      %s\n", filepath.Join(out, render.DeletionOrderFile))
		fmt.Printf("Pages:         %s\n", filepath.Join(out, "index.html"))
		log.Printf("[%s] Done! Time Elapsed: %s", s.Run.ID, time.Since(start))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(documentCmd)

	documentCmd.Flags().StringP("output", "o", "", "Output directory (overrides settings.output)")
	viper.BindPFlag("settings.output", documentCmd.Flags().Lookup("output"))
}
