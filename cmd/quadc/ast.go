package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hokaccha/go-prettyjson"
	"github.com/quadlang/quad"
	"github.com/quadlang/quad/ast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var outputFormatsCompletion = []string{"json", "text"}

func newAstCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ast [file]",
		Short: "Print the parsed program",
		Args:  cobra.MaximumNArgs(1),
		RunE:  astHandler,
	}
	cmd.Flags().StringP("output", "o", "text", "output format (json, text)")
	_ = cmd.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return outputFormatsCompletion, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func astHandler(cmd *cobra.Command, args []string) error {
	code, filename, err := getQuadCode(cmd, args)
	if err != nil {
		return err
	}
	prog, err := quad.Parse(cmd.Context(), code, getQuadOptions(filename)...)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("output")
	output, err := getOutput(prog, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}

func getOutput(prog *ast.Program, format string) (string, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return strings.TrimRight(prog.String(), "\n"), nil
	case "json":
		output, err := getOutputJSON(ast.Encode(prog))
		if err != nil {
			return "", err
		}
		return string(output), nil
	default:
		return "", fmt.Errorf("unknown output format: %s", format)
	}
}

func getOutputJSON(result any) ([]byte, error) {
	if viper.GetBool("no-color") {
		return json.MarshalIndent(result, "", "  ")
	}
	return prettyjson.Marshal(result)
}
