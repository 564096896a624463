package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"conventest/internal/convention"
	"conventest/internal/metadata"
)

var (
	// module is the set of candidate types the binary runs.
	module *metadata.Module
	// builtinConvention is used unless --configured-convention is given.
	// A nil value means the convention is always built from configuration.
	builtinConvention *convention.Convention
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "conventest",
	Short: "Discover and run convention-based tests",
	Long: `conventest discovers test classes and test cases in a module by convention
and runs them through a configurable lifecycle.

Results are published to listeners: the console, a JSON report file, a CI
server, OpenTelemetry traces, an interactive terminal view or an MCP client.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. failed tests, invalid configuration)
	SilenceUsage: true,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// SetModule sets the module discovered and run by the commands.
func SetModule(m *metadata.Module) {
	module = m
}

// SetConvention sets the convention the module is written against.
func SetConvention(c *convention.Convention) {
	builtinConvention = c
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "conventest version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a configuration file layered over user and project configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides configuration")
	rootCmd.PersistentFlags().BoolVar(&configuredConvention, "configured-convention", false, "Build the convention from configuration instead of the module's own")
}
