package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Hopsan/hopsan-sub008/internal/presentation/graph"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage stored undo histories",
	Long:  `List, inspect, and remove the undo histories kept by the configured store.`,
}

var historyLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored histories",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend(cfg, logger)
		if err != nil {
			return err
		}
		defer b.Close()

		ids, err := b.Store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing histories: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No stored histories found.")
			return nil
		}
		fmt.Fprintln(out, "Stored Histories:")
		for _, id := range ids {
			fmt.Fprintln(out, "- "+id)
		}
		return nil
	},
}

var historyInspectCmd = &cobra.Command{
	Use:   "inspect <document-id>",
	Short: "Show the posts of a stored history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		documentID := args[0]
		raw, _ := cmd.Flags().GetBool("raw")
		format, _ := cmd.Flags().GetString("output")

		b, err := openBackend(cfg, logger)
		if err != nil {
			return err
		}
		defer b.Close()

		h, err := b.Store.Load(cmd.Context(), documentID)
		if err != nil {
			return fmt.Errorf("error loading history '%s': %w", documentID, err)
		}

		var v any = h.Summary()
		if raw {
			v = h
		}

		var data []byte
		switch format {
		case "json":
			data, err = json.MarshalIndent(v, "", "  ")
		case "yaml":
			data, err = yaml.Marshal(v)
		case "mermaid":
			data = []byte(graph.GenerateMermaid(h.Summary()))
		default:
			return fmt.Errorf("unknown output format %q", format)
		}
		if err != nil {
			return fmt.Errorf("error marshaling history: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var historyRmCmd = &cobra.Command{
	Use:   "rm <document-id>...",
	Short: "Remove one or more histories",
	Args: func(cmd *cobra.Command, args []string) error {
		if all, _ := cmd.Flags().GetBool("all"); all {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend(cfg, logger)
		if err != nil {
			return err
		}
		defer b.Close()

		ids := args
		if all, _ := cmd.Flags().GetBool("all"); all {
			if ids, err = b.Store.List(cmd.Context()); err != nil {
				return fmt.Errorf("error listing histories: %w", err)
			}
		}

		out := cmd.OutOrStdout()
		var errs []error
		for _, id := range ids {
			if err := b.Store.Delete(cmd.Context(), id); err != nil {
				errs = append(errs, fmt.Errorf("error removing '%s': %w", id, err))
				continue
			}
			fmt.Fprintf(out, "Removed history '%s'\n", id)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyLsCmd)
	historyCmd.AddCommand(historyInspectCmd)
	historyCmd.AddCommand(historyRmCmd)

	historyInspectCmd.Flags().Bool("raw", false, "Print the full persisted history instead of a summary")
	historyInspectCmd.Flags().StringP("output", "o", "json", "Output format (json, yaml, mermaid)")
	historyRmCmd.Flags().Bool("all", false, "Remove every stored history")
}
