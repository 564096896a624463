// Package config provides configuration management for conventest.
//
// This package implements a layered configuration system. Configuration is
// loaded from multiple sources and merged in a specific order, with later
// sources overriding earlier ones.
//
// # Configuration Layers
//
// Configuration is loaded and merged in the following order:
//
//  1. Default Configuration (embedded in binary)
//     - Describes the default convention: classes ending in "Tests",
//       declaration order and the per-case lifecycle
//
//  2. User Configuration (~/.config/conventest/config.yaml)
//     - User-specific settings that apply to all projects
//
//  3. Project Configuration (./.conventest/config.yaml)
//     - Project-specific settings in the current directory
//     - Allows teams to share their convention via version control
//
//  4. Explicit Configuration (--config flag)
//
// Each layer only overrides the keys it sets. Lists replace the lists of
// earlier layers instead of being appended to them.
//
// # Configuration Structure
//
//	convention:
//	  classSuffixes: [Tests]
//	  namespaces: [Sample]
//	  requireClassTag: ""
//	  excludeMethods: [Helper]
//	  requireMethodTag: ""
//	  parameterTag: ""
//	  order: declaration        # declaration | name
//	  lifecycle:
//	    kind: per-case          # per-case | per-class | set-up
//	    setUpMethod: SetUp
//	output:
//	  verbose: false
//	  reportDir: ./reports
//	ci:
//	  enabled: false
//	  baseURL: ""
//	telemetry:
//	  enabled: false
//	  output: ""
//	log:
//	  level: info
//
// BuildConvention turns the convention section into a *convention.Convention
// that the runner freezes at the start of every run.
package config
