package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var sourceFile, objectFile string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print a program listing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProgram(sourceFile, objectFile)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), p.Listing())
			return nil
		},
	}

	cmd.Flags().StringVarP(&sourceFile, "file", "f", "", "BASIC source file")
	cmd.Flags().StringVarP(&objectFile, "load", "l", "", "object file")
	cmd.MarkFlagsMutuallyExclusive("file", "load")
	cmd.MarkFlagsOneRequired("file", "load")
	return cmd
}
