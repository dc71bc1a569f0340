package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"db-graph/internal/graph"
	"db-graph/internal/render"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var (
	reverse bool
	plain   bool
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Print the table insertion order (or deletion order with --reverse)",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		return printOrder(os.Stdout, s.Run.Snapshot, reverse, plain)
	},
}

func init() {
	RootCmd.AddCommand(orderCmd)

	orderCmd.Flags().BoolVarP(&reverse, "reverse", "r", false, "Print the deletion order instead")
	orderCmd.Flags().BoolVar(&plain, "plain", false, "Print table names only, one per line")
}

func printOrder(w io.Writer, snap *graph.Snapshot, reverse, plain bool) error {
	keys := snap.InsertionOrder()
	title := "Insertion Order"
	if reverse {
		keys = snap.DeletionOrder()
		title = "Deletion Order"
	}

	if plain {
		return render.WriteOrder(w, snap, keys)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"#", "TABLE", "LEVEL", "PARENTS", "CHILDREN"})
	for i, k := range keys {
		t.AppendRow(table.Row{
			i + 1,
			render.DisplayName(snap, k),
			snap.Level(k),
			len(snap.Incoming(k)),
			len(snap.Outgoing(k)),
		})
	}
	t.Render()

	deferred := snap.Deferred()
	if len(deferred) == 0 {
		return nil
	}

	fmt.Fprintf(w, "\n%s %s\n", text.FgYellow.Sprint("⚠"),
		text.FgYellow.Sprintf("%d constraint(s) deferred to break reference cycles:", len(deferred)))
	d := table.NewWriter()
	d.SetOutputMirror(w)
	d.SetStyle(table.StyleRounded)
	d.AppendHeader(table.Row{"CONSTRAINT", "CHILD", "COLUMNS", "PARENT", "REFERENCED"})
	for _, e := range deferred {
		d.AppendRow(table.Row{
			e.Name,
			render.DisplayName(snap, e.Child),
			strings.Join(e.Columns, ", "),
			render.DisplayName(snap, e.Parent),
			strings.Join(e.RefColumns, ", "),
		})
	}
	d.Render()
	return nil
}
