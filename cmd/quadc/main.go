// Command quadc compiles quad programs into NASM x86-64 assembly.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "quadc",
		Short:         "Compiler for the quad language",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(); err != nil {
				return err
			}
			processGlobalFlags()
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default is $HOME/.quadc.yaml)")
	pf.Bool("no-color", false, "disable colored output")
	pf.String("log-level", "warn", "log level (debug, info, warn, error)")
	pf.Uint64("return-stack", defaultStackSize, "return stack size in bytes")
	pf.Uint64("locals-stack", defaultStackSize, "locals stack size in bytes")
	pf.Uint64("escaping-stack", defaultStackSize, "escaping stack size in bytes")
	pf.StringP("code", "c", "", "code to compile")
	pf.Bool("stdin", false, "read code from stdin")
	for _, name := range []string{
		"config", "no-color", "log-level", "return-stack",
		"locals-stack", "escaping-stack", "code", "stdin",
	} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}

	root.AddCommand(
		newBuildCmd(),
		newLirCmd(),
		newAstCmd(),
		newRunCmd(),
		newVersionCmd(),
	)
	return root
}

// initConfig reads the optional config file and QUADC_ environment
// variables. A missing default config file is not an error.
func initConfig() error {
	viper.SetEnvPrefix("quadc")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
		return nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return nil
	}
	viper.AddConfigPath(home)
	viper.SetConfigName(".quadc")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

func main() {
	err := newRootCmd().Execute()
	if err == nil {
		return
	}
	var exit *exitError
	if errors.As(err, &exit) {
		os.Exit(exit.status)
	}
	fatal(formatError(err))
}
