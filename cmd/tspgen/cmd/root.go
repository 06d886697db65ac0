// Package cmd provides the CLI commands for tspgen.
package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/adi-family/lib-typespec-api/internal/codegen"
	"github.com/adi-family/lib-typespec-api/internal/parser"
	"github.com/adi-family/lib-typespec-api/internal/resolver"
	"github.com/adi-family/lib-typespec-api/pkg/logging"
)

var (
	// verbose enables debug logging
	verbose bool
	// logFormat selects the log output format (json or text)
	logFormat string
)

// rootCmd represents the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "tspgen",
	Short: "IDL compiler emitting API bindings and OpenAPI documents",
	Long: `tspgen compiles schema definitions written in a C-family interface
description language into Python, TypeScript and Rust API bindings,
plus OpenAPI 3.0 documents in JSON and YAML.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg := logging.ConfigFromEnv()
		if verbose {
			cfg.Level = "debug"
		}
		if logFormat != "" {
			cfg.Format = logFormat
		}
		logging.New(cfg).SetDefault()
	},
}

// Execute runs the root command. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

// NewRootCmd creates a fresh command tree for testing.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "tspgen",
		Short:        rootCmd.Short,
		Long:         rootCmd.Long,
		SilenceUsage: true,
	}
	addCommands(cmd)
	return cmd
}

func addCommands(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json|text)")

	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())
}

func init() {
	addCommands(rootCmd)
}

// ExitCode maps an error to the documented process exit code:
// 1 usage, 2 lex/parse, 3 resolve, 4 emit or I/O.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var lexErr *parser.LexError
	var parseErr *parser.ParseError
	if errors.As(err, &lexErr) || errors.As(err, &parseErr) {
		return 2
	}

	var resolveErr *resolver.ResolveError
	if errors.As(err, &resolveErr) {
		return 3
	}

	var emitErr *codegen.EmitError
	var ioErr *codegen.IOError
	if errors.As(err, &emitErr) || errors.As(err, &ioErr) {
		return 4
	}

	return 1
}
