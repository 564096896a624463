package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"conventest/internal/adapter"
	"conventest/internal/execution"
)

var discoverJSON bool

// discoverCmd represents the discover command
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List the tests of the module without running them",
	Long: `Discover lists every test the convention finds in the module, one per line.

With --json each test is written as a JSON test case model with its method
group, module location and source file and line, for consumption by IDE and
host adapters.`,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().BoolVar(&discoverJSON, "json", false, "Write JSON test case models, one per line")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogging(cfg, os.Stderr); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var opts []execution.Option
	if discoverJSON {
		if module == nil {
			return errNoModule
		}
		sink := adapter.NewJSONLines(out)
		opts = append(opts, execution.WithListeners(adapter.NewDiscoveryListener(sink, module.Location())))
	}

	runner, err := newRunner(cfg, opts...)
	if err != nil {
		return err
	}

	tests, err := runner.Discover(cmd.Context())
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}
	if !discoverJSON {
		for _, test := range tests {
			fmt.Fprintln(out, test.Name())
		}
	}
	return nil
}
