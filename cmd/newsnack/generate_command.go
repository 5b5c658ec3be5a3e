package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "generate <id> [id...]",
		Short: "Trigger article generation for queued work items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDArgs(args)
			if err != nil {
				return err
			}
			baseURL, err := ctx.apiBaseURL()
			if err != nil {
				return err
			}

			var resp struct {
				Claimed []int64 `json:"claimed"`
			}
			payload := map[string][]int64{"ids": ids}
			if err := postJSON(cmd.Context(), baseURL, "/api/generations", payload, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Claimed %d work item(s): %v\n", len(resp.Claimed), resp.Claimed)
			return nil
		},
	}
}
