package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jllopis/converge/pkg/eval"
)

func (a *App) newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Run eval fixtures for reproducible testing",
	}
	cmd.AddCommand(a.newEvalRunCmd(), a.newEvalListCmd(), a.newEvalHistoryCmd())
	return cmd
}

func (a *App) evalDir(flag string) string {
	if flag != "" {
		return flag
	}
	return a.cfg.Eval.Dir
}

func (a *App) historyPath(flag string) string {
	if flag != "" {
		return flag
	}
	return a.cfg.Eval.History
}

func (a *App) newEvalRunCmd() *cobra.Command {
	var (
		dir      string
		mock     bool
		parallel int
		history  string
	)
	cmd := &cobra.Command{
		Use:   "run [eval_id]",
		Short: "Run all fixtures, or only eval_id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir = a.evalDir(dir)
			fixtures, err := eval.LoadFixturesFromDir(dir, a.logger)
			if err != nil {
				return err
			}
			if len(fixtures) == 0 {
				fmt.Fprintf(a.stdout, "No eval fixtures found in '%s'\n", dir)
				fmt.Fprintln(a.stdout, "Create JSON or YAML fixture files in the evals/ directory.")
				return nil
			}
			if len(args) == 1 {
				f, ok := eval.FindFixture(fixtures, args[0])
				if !ok {
					fmt.Fprintf(a.stdout, "Eval '%s' not found in '%s'\n", args[0], dir)
					return nil
				}
				fixtures = []eval.Fixture{f}
			}
			if mock {
				for i := range fixtures {
					fixtures[i].UseMockLLM = true
				}
			}
			if parallel <= 0 {
				parallel = a.cfg.Eval.Parallel
			}

			opts := []eval.Option{
				eval.WithProviderFactory(a.providerFactory()),
				eval.WithLogger(a.logger),
				eval.WithMaxCycles(a.cfg.Engine.MaxCycles),
				eval.WithParallelism(parallel),
				eval.WithParallelAgents(a.cfg.Engine.ParallelAgents),
			}
			if path := a.historyPath(history); path != "" {
				store, closeDB, err := eval.OpenSQLiteHistory(path)
				if err != nil {
					return err
				}
				defer closeDB()
				opts = append(opts, eval.WithHistory(store))
			}

			a.logger.Info("running eval fixtures", "count", len(fixtures))
			results := eval.NewRunner(opts...).RunEvals(cmd.Context(), fixtures)
			eval.PrintResults(a.stdout, results)

			if s := eval.Summarize(results); s.Failed > 0 {
				return fmt.Errorf("%d of %d evals failed", s.Failed, s.Total)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&dir, "dir", "d", "", "directory containing eval fixtures (defaults to eval.dir)")
	f.BoolVar(&mock, "mock", false, "use the mock model for every fixture")
	f.IntVar(&parallel, "parallel", 0, "fixtures to run at once (defaults to eval.parallel)")
	f.StringVar(&history, "history", "", "SQLite file to record results in")
	return cmd
}

func (a *App) newEvalListCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available eval fixtures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir = a.evalDir(dir)
			fixtures, err := eval.LoadFixturesFromDir(dir, a.logger)
			if err != nil {
				return err
			}
			if len(fixtures) == 0 {
				fmt.Fprintf(a.stdout, "No eval fixtures found in '%s'\n", dir)
				return nil
			}
			fmt.Fprintln(a.stdout, "\nAvailable eval fixtures:")
			fmt.Fprintln(a.stdout)
			for _, f := range fixtures {
				fmt.Fprintf(a.stdout, "  %s - %s\n", f.EvalID, f.Description)
				fmt.Fprintf(a.stdout, "    Pack: %s\n", f.Pack)
				fmt.Fprintf(a.stdout, "    Seeds: %d\n", len(f.Seeds))
				fmt.Fprintf(a.stdout, "    Mock LLM: %t\n", f.UseMockLLM)
				fmt.Fprintln(a.stdout)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "directory containing eval fixtures (defaults to eval.dir)")
	return cmd
}

func (a *App) newEvalHistoryCmd() *cobra.Command {
	var (
		history    string
		evalID     string
		limit      int
		failedOnly bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded eval results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.historyPath(history)
			if path == "" {
				return NewInvalidArgumentError("history", fmt.Errorf("a history database is required"))
			}
			store, closeDB, err := eval.OpenSQLiteHistory(path)
			if err != nil {
				return err
			}
			defer closeDB()

			entries, err := store.List(cmd.Context(), eval.HistoryFilter{
				EvalID:     evalID,
				FailedOnly: failedOnly,
				Limit:      limit,
			})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(a.stdout, "No eval history recorded")
				return nil
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RECORDED\tEVAL\tSTATUS\tCYCLES\tFACTS\tDURATION\tRUN")
			for _, e := range entries {
				status := "PASS"
				if !e.Passed {
					status = "FAIL"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%dms\t%s\n",
					e.RecordedAt.Format("2006-01-02 15:04:05"), e.EvalID, status,
					e.Cycles, e.FactCount, e.DurationMs, e.RunID)
			}
			return tw.Flush()
		},
	}
	f := cmd.Flags()
	f.StringVar(&history, "history", "", "SQLite file results were recorded in (defaults to eval.history)")
	f.StringVar(&evalID, "eval-id", "", "only show this fixture")
	f.IntVar(&limit, "limit", 20, "maximum entries to show")
	f.BoolVar(&failedOnly, "failed", false, "only show failed runs")
	return cmd
}
