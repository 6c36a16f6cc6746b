package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/antibyte/linebasic/pkg/objfile"
)

// objectExt is the extension compile uses when no output is given.
const objectExt = ".bobj"

func newCompileCmd() *cobra.Command {
	var sourceFile, output string

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a program to an object file",
		Long: `Compile a BASIC source file and write the parsed program as an object
file. Without -o the object file sits next to the source with a .bobj
extension.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProgram(sourceFile, "")
			if err != nil {
				return err
			}
			if output == "" {
				output = strings.TrimSuffix(sourceFile, filepath.Ext(sourceFile)) + objectExt
			}
			if err := objfile.Save(output, p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Compiled %d lines to %s (digest %s)\n", p.Len(), output, objfile.Digest(p)[:12])
			return nil
		},
	}

	cmd.Flags().StringVarP(&sourceFile, "file", "f", "", "BASIC source file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "object file to write")
	cmd.MarkFlagRequired("file")
	return cmd
}
