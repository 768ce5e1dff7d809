package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show item availability from a running monitor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := newClient()
			ctx := cmd.Context()

			items, err := c.ListItems(ctx)
			if err != nil {
				return err
			}
			st, err := c.GetState(ctx)
			if err != nil {
				return err
			}
			ready, err := c.Ready(ctx)
			if err != nil {
				return err
			}

			if jsonOutput() {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"ready": ready, "items": items, "last_cycle": st.LastCycle})
			}

			if err := printItemTable(items); err != nil {
				return err
			}
			if st.LastCycle != nil {
				fmt.Printf("\nlast cycle %s at %s: checked %d, failed %d, notified %d\n",
					st.LastCycle.ID, st.LastCycle.StartedAt.Format("2006-01-02 15:04:05"),
					st.LastCycle.Checked, st.LastCycle.Failed, st.LastCycle.Notified)
			} else if !ready {
				fmt.Println("\nfirst cycle still running")
			}
			if out := st.OutOfStock(); len(out) > 0 {
				fmt.Printf("out of stock: %s\n", strings.Join(out, ", "))
			}
			return nil
		},
	}
}
