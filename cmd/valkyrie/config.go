package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vulnverified/valkyrie/internal/output"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage stored settings such as API keys",
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.openConfig()
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			a.logger.Info("Saved setting", "key", args[0], "path", cfg.Path())
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.openConfig()
			if err != nil {
				return err
			}
			value, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return output.WriteJSON(a.stdout, map[string]string{args[0]: value})
			}
			fmt.Fprintln(a.stdout, value)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.openConfig()
			if err != nil {
				return err
			}
			return cfg.Delete(args[0])
		},
	}

	listCmd := &cobra.Command{
		Use:   "list [key]",
		Short: "List settings, or only the named one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.openConfig()
			if err != nil {
				return err
			}
			keys := cfg.Keys()
			if len(args) == 1 {
				if _, err := cfg.Get(args[0]); err != nil {
					return err
				}
				keys = []string{args[0]}
			}

			values := make(map[string]string, len(keys))
			fields := make([]output.Field, 0, len(keys))
			for _, k := range keys {
				v := cfg.Lookup(k)
				values[k] = v
				fields = append(fields, output.Field{Key: k, Value: v})
			}
			if a.jsonOutput {
				return output.WriteJSON(a.stdout, values)
			}
			output.WriteFields(a.stdout, cfg.Path(), fields, a.noColor)
			return nil
		},
	}

	cmd.AddCommand(setCmd, getCmd, deleteCmd, listCmd)
	return cmd
}
