package main

import (
	"errors"
	"io"
	"os"

	"github.com/quadlang/quad"
	"github.com/quadlang/quad/emit"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultStackSize = emit.DefaultStackSize

func getQuadOptions(filename string) []quad.Option {
	opts := []quad.Option{
		quad.WithLogger(newLogger()),
		quad.WithReturnStack(viper.GetUint64("return-stack")),
		quad.WithLocalsStack(viper.GetUint64("locals-stack")),
		quad.WithEscapingStack(viper.GetUint64("escaping-stack")),
	}
	if filename != "" {
		opts = append(opts, quad.WithFilename(filename))
	}
	return opts
}

// getQuadCode determines what source is to be compiled. There are three
// possibilities:
// 1. --code <code>
// 2. --stdin (read code from stdin)
// 3. path as args[0]
// The returned filename is empty unless the code came from a file.
func getQuadCode(cmd *cobra.Command, args []string) (code, filename string, err error) {
	var codeFlagSet bool
	if f := cmd.Flags().Lookup("code"); f != nil && f.Changed {
		codeFlagSet = true
	}
	stdinFlagSet := viper.GetBool("stdin")
	pathSupplied := len(args) > 0

	count := 0
	for _, set := range []bool{codeFlagSet, stdinFlagSet, pathSupplied} {
		if set {
			count++
		}
	}
	if count > 1 {
		return "", "", errors.New("multiple input sources specified")
	}
	if count == 0 {
		return "", "", errors.New("no input provided")
	}

	if stdinFlagSet {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", err
		}
		return string(data), "", nil
	} else if pathSupplied {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", "", err
		}
		return string(data), args[0], nil
	}
	return viper.GetString("code"), "", nil
}
