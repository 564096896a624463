package config

// Config is the top-level configuration structure for conventest.
type Config struct {
	Convention ConventionConfig `yaml:"convention"`
	Output     OutputConfig     `yaml:"output"`
	CI         CIConfig         `yaml:"ci"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Log        LogConfig        `yaml:"log"`
}

// OrderKind selects how the cases of a class are ordered.
type OrderKind string

const (
	OrderDeclaration OrderKind = "declaration"
	OrderName        OrderKind = "name"
)

// LifecycleKind selects the lifecycle strategy.
type LifecycleKind string

const (
	LifecyclePerCase  LifecycleKind = "per-case"
	LifecyclePerClass LifecycleKind = "per-class"
	LifecycleSetUp    LifecycleKind = "set-up"
)

// ConventionConfig describes the discovery and lifecycle rules as data.
type ConventionConfig struct {
	ClassSuffixes    []string        `yaml:"classSuffixes,omitempty"`    // Class name suffixes, e.g. ["Tests"]
	Namespaces       []string        `yaml:"namespaces,omitempty"`       // Restrict discovery to these namespaces
	RequireClassTag  string          `yaml:"requireClassTag,omitempty"`  // Tag kind a class must carry
	ExcludeMethods   []string        `yaml:"excludeMethods,omitempty"`   // Operations never treated as cases
	RequireMethodTag string          `yaml:"requireMethodTag,omitempty"` // Tag kind a case must carry
	ParameterTag     string          `yaml:"parameterTag,omitempty"`     // Tag kind carrying argument lists
	Order            OrderKind       `yaml:"order,omitempty"`
	Lifecycle        LifecycleConfig `yaml:"lifecycle"`
}

// LifecycleConfig selects and parameterizes the lifecycle.
type LifecycleConfig struct {
	Kind        LifecycleKind `yaml:"kind,omitempty"`
	SetUpMethod string        `yaml:"setUpMethod,omitempty"` // Only used by the set-up lifecycle
}

// OutputConfig controls console output and reports.
type OutputConfig struct {
	Verbose   bool   `yaml:"verbose"`
	ReportDir string `yaml:"reportDir,omitempty"` // Directory for JSON reports; empty disables them
}

// CIConfig controls result reporting to a CI server.
type CIConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"baseURL,omitempty"` // Overrides APPVEYOR_API_URL
}

// TelemetryConfig controls span export.
type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Output  string `yaml:"output,omitempty"` // File path; empty means stderr
}

// LogConfig controls the logger.
type LogConfig struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn or error
}
