package cmd

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

func stateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the persisted availability state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			store, closeStore, err := buildStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer closeStore()

			st, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput() {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}

			keys := make([]string, 0, len(st))
			for k := range st {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			tw := newTabWriter(os.Stdout)
			tw.writef("KEY\tAVAILABLE\n")
			for _, k := range keys {
				tw.writef("%s\t%v\n", k, st[k])
			}
			return tw.finish()
		},
	}
}
