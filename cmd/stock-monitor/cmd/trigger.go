package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func triggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger",
		Short: "Ask a running monitor to check all items now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := newClient().TriggerCheck(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(res.Status)
			return nil
		},
	}
}
