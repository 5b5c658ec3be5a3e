package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/team-leekim/newsnack-ai/internal/store"
)

func newBriefingCommand(ctx *commandContext) *cobra.Command {
	briefingCmd := &cobra.Command{
		Use:   "briefing",
		Short: "Create and inspect daily audio briefings",
	}

	briefingCmd.AddCommand(newBriefingCreateCommand(ctx))
	briefingCmd.AddCommand(newBriefingListCommand(ctx))

	return briefingCmd
}

func newBriefingCreateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "create <work-item-id> [work-item-id...]",
		Short: "Assemble an audio briefing from generated articles",
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
				ID              int64   `json:"ID"`
				Title           string  `json:"Title"`
				AudioURL        string  `json:"AudioURL"`
				DurationSeconds float64 `json:"DurationSeconds"`
			}
			payload := map[string][]int64{"target_ids": ids}
			if err := postJSON(cmd.Context(), baseURL, "/api/briefings", payload, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created briefing %d (%s, %.1fs)\n%s\n",
				resp.ID, resp.Title, resp.DurationSeconds, resp.AudioURL)
			return nil
		},
	}
}

func newBriefingListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent briefings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				briefings, err := st.ListBriefings(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(briefings) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No briefings found")
					return nil
				}
				rows := make([][]string, 0, len(briefings))
				for _, b := range briefings {
					rows = append(rows, []string{
						strconv.FormatInt(b.ID, 10),
						b.Title,
						fmt.Sprintf("%.1fs", b.DurationSeconds),
						strconv.Itoa(len(b.ArticleIDs)),
						b.CreatedAt.Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Duration", "Articles", "Created"}, rows, 0, 2, 3))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of briefings to show")
	return cmd
}
