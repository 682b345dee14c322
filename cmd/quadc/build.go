package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/quadlang/quad"
	"github.com/spf13/cobra"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [file]",
		Short: "Compile a program to NASM assembly",
		Args:  cobra.MaximumNArgs(1),
		RunE:  buildHandler,
	}
	cmd.Flags().StringP("output", "o", "", "output file (default is the input name with .asm, or stdout)")
	cmd.Flags().Bool("no-comments", false, "omit LIR comments from the assembly")
	return cmd
}

func buildHandler(cmd *cobra.Command, args []string) error {
	code, filename, err := getQuadCode(cmd, args)
	if err != nil {
		return err
	}
	noComments, _ := cmd.Flags().GetBool("no-comments")
	opts := append(getQuadOptions(filename), quad.WithComments(!noComments))

	// Assemble into memory so a failed build never leaves a partial file.
	var buf bytes.Buffer
	if err := quad.Build(cmd.Context(), code, &buf, opts...); err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" && filename != "" {
		output = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".asm"
	}
	if output == "" || output == "-" {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	return os.WriteFile(output, buf.Bytes(), 0o644)
}
