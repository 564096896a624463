package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"conventest/internal/config"
	"conventest/internal/convention"
	"conventest/internal/execution"
	"conventest/pkg/logging"
)

var (
	configPath           string
	logLevel             string
	configuredConvention bool
)

var errNoModule = errors.New("no module registered")

// loadConfig loads the layered configuration and applies the persistent flags.
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfigWithPath(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// initLogging sends log output to w, never to standard output, which runs capture.
func initLogging(cfg config.Config, w io.Writer) error {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logging.InitForCLI(level, w)
	return nil
}

// selectConvention returns the module's own convention unless configuration was requested.
func selectConvention(cfg config.Config) (*convention.Convention, error) {
	if builtinConvention != nil && !configuredConvention {
		return builtinConvention, nil
	}
	conv, err := config.BuildConvention(cfg.Convention)
	if err != nil {
		return nil, fmt.Errorf("failed to build convention: %w", err)
	}
	return conv, nil
}

func newRunner(cfg config.Config, opts ...execution.Option) (*execution.Runner, error) {
	if module == nil {
		return nil, errNoModule
	}
	conv, err := selectConvention(cfg)
	if err != nil {
		return nil, err
	}
	return execution.NewRunner(module, conv, opts...), nil
}

// bindFlag overrides a configuration value when the flag was given explicitly.
func bindFlag[T any](cmd *cobra.Command, name string, flag T, target *T) {
	if cmd.Flags().Changed(name) {
		*target = flag
	}
}
