package main

import (
	"github.com/spf13/cobra"

	"github.com/antibyte/linebasic/pkg/basic"
	"github.com/antibyte/linebasic/pkg/configuration"
	"github.com/antibyte/linebasic/pkg/logger"
)

func newRunCmd() *cobra.Command {
	var (
		sourceFile string
		objectFile string
		maxSteps   int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a program",
		Long: `Run a BASIC program from a source file (-f) or an object file (-l).

With --max-steps the run stops with an error after that many statements.
The default comes from [Interpreter] max_steps; 0 means no limit.

Examples:
  basic run -f examples/for_loop.bas
  basic run -l for_loop.bobj --max-steps 1000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProgram(sourceFile, objectFile)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-steps") {
				maxSteps = configuration.GetInt("Interpreter", "max_steps", 0)
			}

			e := basic.NewEngine(p, basic.OutputWrite, cmd.OutOrStdout())
			err = basic.RunContext(cmd.Context(), e, maxSteps)
			logger.Debug(logger.AreaEngine, "Run finished after %d steps: %v", e.Steps(), err)
			return err
		},
	}

	cmd.Flags().StringVarP(&sourceFile, "file", "f", "", "BASIC source file")
	cmd.Flags().StringVarP(&objectFile, "load", "l", "", "object file")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "stop after this many statements (0 = no limit)")
	cmd.MarkFlagsMutuallyExclusive("file", "load")
	cmd.MarkFlagsOneRequired("file", "load")
	return cmd
}
