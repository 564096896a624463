package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"conventest/internal/agent"
	"conventest/internal/config"
	"conventest/internal/execution"
	"conventest/internal/lifecycle"
	"conventest/internal/listeners/ci"
	"conventest/internal/listeners/console"
	"conventest/internal/listeners/report"
	"conventest/internal/listeners/telemetry"
	"conventest/internal/reporting"
	"conventest/internal/tui"
	"conventest/pkg/logging"
)

var (
	runTests       []string
	runVerbose     bool
	runReportDir   string
	runTUI         bool
	runTrace       bool
	runTraceOutput string
	runCIURL       string
	runMCPServer   bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tests of the module",
	Long: `Run discovers every test class and test case of the module and runs them
through the lifecycle of the convention.

Example usage:
  conventest run                                       # Run all tests
  conventest run --test Samples.CalculatorTests.ShouldAdd
  conventest run --verbose                             # Show stack traces and captured output
  conventest run --report ./reports                    # Write a JSON report
  conventest run --trace --trace-output spans.json     # Export OpenTelemetry spans
  conventest run --tui                                 # Interactive view
  conventest run --mcp-server                          # Serve test_discover and test_run over stdio

On AppVeyor (APPVEYOR=True) each result is also posted to APPVEYOR_API_URL.
The command exits non-zero when any test failed or the run was aborted.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Test selection
	runCmd.Flags().StringArrayVar(&runTests, "test", nil, "Run only this test (Class.Method); repeatable")

	// Output and reporting
	runCmd.Flags().BoolVar(&runVerbose, "verbose", false, "Show failure stacks and captured output")
	runCmd.Flags().StringVar(&runReportDir, "report", "", "Directory to save a detailed JSON report")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show an interactive view of the run")
	runCmd.Flags().BoolVar(&runTrace, "trace", false, "Export an OpenTelemetry span per run, class and case")
	runCmd.Flags().StringVar(&runTraceOutput, "trace-output", "", "File receiving exported spans (default: stderr)")
	runCmd.Flags().StringVar(&runCIURL, "ci-url", "", "CI API base URL; overrides APPVEYOR_API_URL")

	// MCP Server mode
	runCmd.Flags().BoolVar(&runMCPServer, "mcp-server", false, "Run as MCP server (stdio transport)")

	runCmd.MarkFlagsMutuallyExclusive("mcp-server", "tui")
	runCmd.MarkFlagsMutuallyExclusive("mcp-server", "test")
}

// applyRunFlags lets explicit flags override configuration.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	bindFlag(cmd, "verbose", runVerbose, &cfg.Output.Verbose)
	bindFlag(cmd, "report", runReportDir, &cfg.Output.ReportDir)
	bindFlag(cmd, "trace", runTrace, &cfg.Telemetry.Enabled)
	bindFlag(cmd, "trace-output", runTraceOutput, &cfg.Telemetry.Output)
	if cmd.Flags().Changed("ci-url") {
		cfg.CI.Enabled = true
		cfg.CI.BaseURL = runCIURL
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cmd, &cfg)

	tests, err := parseTests(runTests)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if runMCPServer {
		if err := initLogging(cfg, os.Stderr); err != nil {
			return err
		}
		runner, err := newRunner(cfg)
		if err != nil {
			return err
		}
		logging.Info("Agent", "Starting conventest MCP server (stdio transport)...")
		if err := agent.NewServer(runner, rootCmd.Version).ServeStdio(); err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	}

	var logs <-chan logging.LogEntry
	if runTUI {
		level, err := logging.ParseLevel(cfg.Log.Level)
		if err != nil {
			return err
		}
		logs = logging.InitForTUI(level)
		defer logging.CloseTUIChannel()
	} else if err := initLogging(cfg, os.Stderr); err != nil {
		return err
	}

	listeners, shutdown, err := buildListeners(ctx, cfg, cmd.OutOrStdout(), !runTUI)
	if err != nil {
		return err
	}
	defer shutdown()

	runner, err := newRunner(cfg, execution.WithListeners(listeners...))
	if err != nil {
		return err
	}

	run := func(ctx context.Context, r *execution.Runner) (reporting.ExecutionSummary, error) {
		if len(tests) > 0 {
			return r.RunSelected(ctx, tests)
		}
		return r.RunAll(ctx)
	}

	var summary reporting.ExecutionSummary
	if runTUI {
		expected := len(tests)
		if expected == 0 {
			discovered, err := runner.Discover(ctx)
			if err != nil {
				return err
			}
			expected = len(discovered)
		}
		summary, err = tui.Run(ctx, expected, logs, func(ctx context.Context, view reporting.Listener) (reporting.ExecutionSummary, error) {
			return run(ctx, runner.With(execution.WithListeners(view)))
		})
	} else {
		summary, err = run(ctx, runner)
	}
	if err != nil {
		return fmt.Errorf("test run aborted: %w", err)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d tests failed", summary.Failed, summary.Total())
	}
	return nil
}

func parseTests(names []string) ([]lifecycle.Test, error) {
	tests := make([]lifecycle.Test, 0, len(names))
	for _, name := range names {
		test, err := lifecycle.ParseTest(name)
		if err != nil {
			return nil, err
		}
		tests = append(tests, test)
	}
	return tests, nil
}

// buildListeners creates the listeners enabled by cfg, in publishing order.
// The returned shutdown flushes exporters and closes files.
func buildListeners(ctx context.Context, cfg config.Config, out io.Writer, withConsole bool) ([]reporting.Listener, func(), error) {
	var (
		listeners []reporting.Listener
		closers   []func()
	)
	shutdown := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if withConsole {
		listeners = append(listeners, console.New(out, cfg.Output.Verbose))
	}

	if cfg.Output.ReportDir != "" {
		listeners = append(listeners, report.New(cfg.Output.ReportDir))
	}

	ciListener, err := newCIListener(cfg.CI)
	if err != nil {
		return nil, nil, err
	}
	if ciListener != nil {
		listeners = append(listeners, reporting.Async(ciListener))
	}

	if cfg.Telemetry.Enabled {
		w := io.Writer(os.Stderr)
		if cfg.Telemetry.Output != "" {
			f, err := os.Create(cfg.Telemetry.Output)
			if err != nil {
				shutdown()
				return nil, nil, fmt.Errorf("failed to create trace output: %w", err)
			}
			closers = append(closers, func() { _ = f.Close() })
			w = f
		}
		provider, err := telemetry.NewProvider(w, rootCmd.Version)
		if err != nil {
			shutdown()
			return nil, nil, err
		}
		closers = append(closers, func() {
			if err := provider.Shutdown(context.WithoutCancel(ctx)); err != nil {
				logging.Error("Telemetry", err, "Failed to flush spans")
			}
		})
		listeners = append(listeners, telemetry.New(provider))
	}

	return listeners, shutdown, nil
}

// newCIListener prefers an explicitly configured URL and falls back to CI detection.
func newCIListener(cfg config.CIConfig) (*ci.Listener, error) {
	if cfg.Enabled && cfg.BaseURL != "" {
		return ci.New(cfg.BaseURL)
	}
	return ci.FromEnvironment(cfg.BaseURL)
}
