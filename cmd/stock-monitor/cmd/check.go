package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/stock-monitor/internal/config"
)

func checkCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a single monitoring cycle and exit",
		Long: "Fetches every configured item once, notifies on availability flips\n" +
			"and saves the state, exactly like one iteration of run.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var opts []config.LoadOption
			if quiet {
				opts = append(opts, config.WithNotificationBackend("none"))
			}
			cfg, log, err := loadConfig(opts...)
			if err != nil {
				return err
			}

			m, err := buildMonitor(cmd.Context(), cfg, log, quiet)
			if err != nil {
				return err
			}
			defer m.close()

			report, err := m.engine.RunCycle(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput() {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			if err := printResults(report.Results); err != nil {
				return err
			}
			fmt.Printf("\nchecked %d, failed %d, notified %d in %s\n",
				report.Checked, report.Failed, report.Notified, report.Duration)
			return nil
		},
	}

	cmd.Flags().BoolVar(&quiet, "quiet", false, "log notifications instead of sending them")
	return cmd
}
