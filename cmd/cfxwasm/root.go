package main

import (
	"fmt"
	"os"

	"github.com/cfxwasm/sdk/domain/errors"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cfxwasm",
	Short: "Host WebAssembly script resources",
	Long: `cfxwasm loads guest modules built against the cfxwasm SDK into wazero
and drives them: every tick each module's scheduler runs once and events
emitted by modules are delivered to the modules that registered for them.

Configuration is read from CFXWASM_* environment variables; see
"cfxwasm schema" for the full list.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newSchemaCmd())
}

func formatError(err error) string {
	root := errors.ToErrorDetail(err).Root()
	if root.Code == "" {
		return "error: " + err.Error()
	}
	return fmt.Sprintf("error: %v (%s %s)", err, root.Type, root.Code)
}
