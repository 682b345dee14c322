package main

import (
	"fmt"

	"github.com/quadlang/quad"
	"github.com/quadlang/quad/dis"
	"github.com/spf13/cobra"
)

func newLirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "lir [file]",
		Aliases: []string{"dis"},
		Short:   "Print the lowered LIR of a program",
		Args:    cobra.MaximumNArgs(1),
		RunE:    lirHandler,
	}
	cmd.Flags().String("proc", "", "procedure to print")
	return cmd
}

func lirHandler(cmd *cobra.Command, args []string) error {
	code, filename, err := getQuadCode(cmd, args)
	if err != nil {
		return err
	}
	unit, err := quad.Compile(cmd.Context(), code, getQuadOptions(filename)...)
	if err != nil {
		return err
	}

	instructions := dis.Disassemble(unit)
	if proc, _ := cmd.Flags().GetString("proc"); proc != "" {
		instructions = dis.Filter(instructions, proc)
		if len(instructions) == 0 {
			return fmt.Errorf("procedure %q not found", proc)
		}
	}
	return dis.Print(instructions, cmd.OutOrStdout())
}
