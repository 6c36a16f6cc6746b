package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/antibyte/linebasic/pkg/basic"
	"github.com/antibyte/linebasic/pkg/configuration"
)

func newLibraryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Manage the program library",
		Long: `Store, list, run and delete programs in the library database
named by [Store] database.`,
	}
	cmd.AddCommand(
		newLibrarySaveCmd(),
		newLibraryListCmd(),
		newLibraryRunCmd(),
		newLibraryDeleteCmd(),
	)
	return cmd
}

func newLibrarySaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save NAME FILE",
		Short: "Compile FILE and store it as NAME",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			lib, err := openStore()
			if err != nil {
				return err
			}
			defer lib.Close()

			id, err := lib.SaveProgram(cmd.Context(), args[0], string(source))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s as %s\n", args[0], id)
			return nil
		},
	}
}

func newLibraryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored programs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := openStore()
			if err != nil {
				return err
			}
			defer lib.Close()

			programs, err := lib.ListPrograms(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tID\tDIGEST\tCREATED")
			for _, p := range programs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, p.ID, p.Digest[:12], p.CreatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

func newLibraryRunCmd() *cobra.Command {
	var maxSteps int

	cmd := &cobra.Command{
		Use:   "run NAME",
		Short: "Run a stored program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := openStore()
			if err != nil {
				return err
			}
			defer lib.Close()

			p, err := lib.LoadProgram(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-steps") {
				maxSteps = configuration.GetInt("Interpreter", "max_steps", 0)
			}
			return basic.RunContext(cmd.Context(), basic.NewEngine(p, basic.OutputWrite, cmd.OutOrStdout()), maxSteps)
		},
	}
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "stop after this many statements (0 = no limit)")
	return cmd
}

func newLibraryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a stored program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := openStore()
			if err != nil {
				return err
			}
			defer lib.Close()

			if err := lib.DeleteProgram(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
