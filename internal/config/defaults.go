package config

import "conventest/internal/convention"

// DefaultSetUpMethod is the operation run before each case by the set-up lifecycle.
const DefaultSetUpMethod = "SetUp"

// GetDefaultConfig returns the configuration used when no file overrides it.
// It describes the same convention as convention.Default.
func GetDefaultConfig() Config {
	return Config{
		Convention: ConventionConfig{
			ClassSuffixes: []string{convention.DefaultClassSuffix},
			Order:         OrderDeclaration,
			Lifecycle: LifecycleConfig{
				Kind:        LifecyclePerCase,
				SetUpMethod: DefaultSetUpMethod,
			},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
