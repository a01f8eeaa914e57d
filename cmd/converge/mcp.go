package main

import (
	"github.com/spf13/cobra"

	"github.com/jllopis/converge/pkg/eval"
	"github.com/jllopis/converge/pkg/mcp"
)

func (a *App) newMCPCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the eval tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := eval.NewRunner(
				eval.WithProviderFactory(a.providerFactory()),
				eval.WithLogger(a.logger),
				eval.WithMaxCycles(a.cfg.Engine.MaxCycles),
				eval.WithParallelAgents(a.cfg.Engine.ParallelAgents),
			)
			a.logger.Info("serving MCP on stdio", "dir", a.evalDir(dir))
			return mcp.NewEvalServer(runner, a.evalDir(dir), Version).ServeStdio()
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "directory containing eval fixtures (defaults to eval.dir)")
	return cmd
}
