package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jllopis/converge/pkg/packs"
)

func (a *App) newPacksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "packs",
		Short: "Manage domain packs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available domain packs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(a.stdout, "Available domain packs:")
			fmt.Fprintln(a.stdout)
			for _, name := range packs.Available() {
				info, _ := packs.Lookup(name)
				fmt.Fprintf(a.stdout, "  %s - %s\n", name, info.Description)
			}
			return nil
		},
	}, &cobra.Command{
		Use:   "info NAME",
		Short: "Show details of a pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, ok := packs.Lookup(args[0])
			if !ok {
				return NewNotFoundError("pack", args[0], "run 'converge packs list' to see available packs")
			}
			fmt.Fprintf(a.stdout, "Pack: %s\n", info.Name)
			fmt.Fprintf(a.stdout, "Description: %s\n", info.Description)
			fmt.Fprintf(a.stdout, "Version: %s\n", info.Version)
			fmt.Fprintln(a.stdout, "\nAgents:")
			for _, name := range info.Agents {
				fmt.Fprintf(a.stdout, "  - %s\n", name)
			}
			fmt.Fprintln(a.stdout, "\nInvariants:")
			for _, name := range info.Invariants {
				fmt.Fprintf(a.stdout, "  - %s\n", name)
			}
			return nil
		},
	})
	return cmd
}
