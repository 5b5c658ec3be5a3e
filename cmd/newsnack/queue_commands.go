package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/team-leekim/newsnack-ai/internal/store"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the work queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueClearFailedCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show work-item counts per lifecycle state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				summary, err := st.Health(cmd.Context())
				if err != nil {
					return err
				}
				if summary.Total == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				rows := [][]string{
					{string(store.StatusPending), strconv.Itoa(summary.Pending)},
					{string(store.StatusInProgress), strconv.Itoa(summary.InProgress)},
					{string(store.StatusCompleted), strconv.Itoa(summary.Completed)},
					{string(store.StatusFailed), strconv.Itoa(summary.Failed)},
					{"total", strconv.Itoa(summary.Total)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Status", "Count"}, rows, 1))
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work items",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []store.Status
			if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
				for _, raw := range strings.Split(trimmed, ",") {
					statuses = append(statuses, store.Status(strings.TrimSpace(raw)))
				}
			}
			return ctx.withStore(func(st *store.Store) error {
				items, err := st.ListWorkItems(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No work items found")
					return nil
				}
				colorize := shouldColorize(cmd.OutOrStdout())
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						truncate(item.Title, 48),
						item.Category,
						colorStatus(item.Status, colorize),
						truncate(item.ErrorMessage, 40),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Category", "Status", "Error"}, rows, 0))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Comma-separated status filter (pending,in_progress,completed,failed)")
	return cmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var title, body, bodyFile, press, originURL, category string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a source article to the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if bodyFile != "" {
				data, err := os.ReadFile(bodyFile)
				if err != nil {
					return fmt.Errorf("read body file: %w", err)
				}
				body = string(data)
			}
			if strings.TrimSpace(title) == "" || strings.TrimSpace(body) == "" {
				return fmt.Errorf("--title and --body (or --body-file) are required")
			}
			return ctx.withStore(func(st *store.Store) error {
				item, err := st.AddWorkItem(cmd.Context(), &store.WorkItem{
					Title:     title,
					Body:      body,
					Press:     press,
					OriginURL: originURL,
					Category:  category,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added work item %d\n", item.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Source article title")
	cmd.Flags().StringVar(&body, "body", "", "Source article body text")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "Read the body from a file instead")
	cmd.Flags().StringVar(&press, "press", "", "Publishing outlet name")
	cmd.Flags().StringVar(&originURL, "url", "", "Source article URL")
	cmd.Flags().StringVar(&category, "category", "", "Editorial category")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Reset failed work items to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDArgs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				count, err := st.RetryFailed(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d work item(s) to pending\n", count)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove completed work items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				count, err := st.ClearCompleted(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d completed work item(s)\n", count)
				return nil
			})
		},
	}
}

func newQueueClearFailedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-failed",
		Short: "Remove failed work items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				count, err := st.ClearFailed(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d failed work item(s)\n", count)
				return nil
			})
		},
	}
}

func parseIDArgs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid work item id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
