package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/team-leekim/newsnack-ai/internal/store"
)

type editorSeedFile struct {
	Editors []struct {
		Name       string   `yaml:"name"`
		Persona    string   `yaml:"persona"`
		Categories []string `yaml:"categories"`
	} `yaml:"editors"`
}

func newSeedCommand(ctx *commandContext) *cobra.Command {
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load seed data into the database",
	}

	seedCmd.AddCommand(newSeedEditorsCommand(ctx))
	return seedCmd
}

func newSeedEditorsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "editors <file.yaml>",
		Short: "Load editor personas from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read seed file: %w", err)
			}
			var seed editorSeedFile
			if err := yaml.Unmarshal(data, &seed); err != nil {
				return fmt.Errorf("parse seed file: %w", err)
			}
			if len(seed.Editors) == 0 {
				return fmt.Errorf("seed file defines no editors")
			}

			return ctx.withStore(func(st *store.Store) error {
				for i, entry := range seed.Editors {
					if strings.TrimSpace(entry.Name) == "" || strings.TrimSpace(entry.Persona) == "" {
						return fmt.Errorf("editor %d: name and persona are required", i+1)
					}
					editor, err := st.AddEditor(cmd.Context(), &store.Editor{
						Name:       entry.Name,
						Persona:    entry.Persona,
						Categories: entry.Categories,
					})
					if err != nil {
						return fmt.Errorf("add editor %q: %w", entry.Name, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Added editor %d: %s\n", editor.ID, editor.Name)
				}
				return nil
			})
		},
	}
}
