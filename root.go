package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/antibyte/linebasic/pkg/basic"
	"github.com/antibyte/linebasic/pkg/configuration"
	"github.com/antibyte/linebasic/pkg/logger"
	"github.com/antibyte/linebasic/pkg/objfile"
)

type rootOptions struct {
	cfgFile string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "basic",
		Short: "linebasic - a line-numbered BASIC interpreter",
		Long: `linebasic runs programs written in a small line-numbered BASIC:
PRINT, LET, GOTO, FOR/NEXT, IF ... THEN, END and REM.

Programs can be compiled to object files, kept in a program library
and run remotely over a WebSocket service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := configuration.Initialize(opts.cfgFile); err != nil {
				return fmt.Errorf("configuration: %w", err)
			}
			if err := logger.Initialize(); err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			if opts.verbose {
				logger.SetLevel(logger.DEBUG)
				for _, area := range logger.ListAreas() {
					logger.EnableArea(area)
				}
			}
			logger.Debug(logger.AreaConfig, "Configuration loaded from %s", opts.cfgFile)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", configuration.DefaultPath, "configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(
		newRunCmd(),
		newCompileCmd(),
		newListCmd(),
		newVersionCmd(),
		newServeCmd(),
		newLibraryCmd(),
		newUserCmd(),
		newConfigCmd(opts),
	)

	return cmd
}

// loadProgram compiles a source file or loads an object file, whichever is given.
func loadProgram(sourceFile, objectFile string) (*basic.Program, error) {
	switch {
	case sourceFile != "" && objectFile != "":
		return nil, fmt.Errorf("give either a source file or an object file, not both")
	case objectFile != "":
		return objfile.Load(objectFile)
	case sourceFile != "":
		f, err := os.Open(sourceFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		p, err := basic.CompileReader(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sourceFile, err)
		}
		return p, nil
	}
	return nil, fmt.Errorf("no program given, use -f or -l")
}
