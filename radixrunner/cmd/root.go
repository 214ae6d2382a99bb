// Package cmd provides the command-line interface for radixrunner.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "radixrunner",
	Short: "Run and monitor a WebAssembly tick worker on a shared counter.",
	Long: `radixrunner hands a computation module to a worker, verifies that ` +
		`the worker writes into the region the controller reads, and then ` +
		`samples the packed head counter at frame rate.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	return 0
}
