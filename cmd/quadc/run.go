package main

import (
	"github.com/quadlang/quad"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [file] [-- args...]",
		Short: "Compile and execute a program with the LIR evaluator",
		RunE:  runHandler,
	}
	cmd.Flags().Int("step-limit", 0, "maximum number of instructions to execute (0 is unlimited)")
	return cmd
}

func runHandler(cmd *cobra.Command, args []string) error {
	fileArgs, programArgs := splitArgs(cmd, args)
	code, filename, err := getQuadCode(cmd, fileArgs)
	if err != nil {
		return err
	}

	argv0 := filename
	if argv0 == "" {
		argv0 = "quadc"
	}
	stepLimit, _ := cmd.Flags().GetInt("step-limit")
	opts := append(getQuadOptions(filename),
		quad.WithArgs(append([]string{argv0}, programArgs...)),
		quad.WithStdio(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()),
		quad.WithStepLimit(stepLimit),
	)

	status, err := quad.Run(cmd.Context(), code, opts...)
	if err != nil {
		return err
	}
	if exit := int(status & 0xff); exit != 0 {
		return &exitError{status: exit}
	}
	return nil
}

// splitArgs separates arguments pertaining to quadc from arguments meant
// for the program, which follow a "--".
func splitArgs(cmd *cobra.Command, args []string) ([]string, []string) {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		return args, nil
	}
	return args[:dash], args[dash:]
}
