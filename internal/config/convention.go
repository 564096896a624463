package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"conventest/internal/convention"
	"conventest/internal/lifecycle"
	"conventest/pkg/logging"
)

// Validate reports every invalid setting in config.
func Validate(config Config) error {
	var result *multierror.Error

	switch config.Convention.Order {
	case "", OrderDeclaration, OrderName:
	default:
		result = multierror.Append(result, fmt.Errorf("unknown case order %q (expected %s or %s)",
			config.Convention.Order, OrderDeclaration, OrderName))
	}

	lc := config.Convention.Lifecycle
	switch lc.Kind {
	case "", LifecyclePerCase, LifecyclePerClass:
	case LifecycleSetUp:
		if strings.TrimSpace(lc.SetUpMethod) == "" {
			result = multierror.Append(result, fmt.Errorf("lifecycle %s requires setUpMethod", LifecycleSetUp))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("unknown lifecycle kind %q (expected %s, %s or %s)",
			lc.Kind, LifecyclePerCase, LifecyclePerClass, LifecycleSetUp))
	}

	if _, err := logging.ParseLevel(config.Log.Level); err != nil {
		result = multierror.Append(result, err)
	}

	if config.CI.Enabled && config.CI.BaseURL != "" &&
		!strings.HasPrefix(config.CI.BaseURL, "http://") && !strings.HasPrefix(config.CI.BaseURL, "https://") {
		result = multierror.Append(result, fmt.Errorf("ci.baseURL must be an http or https URL, got %q", config.CI.BaseURL))
	}

	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// BuildConvention turns the convention section into a Convention.
func BuildConvention(cfg ConventionConfig) (*convention.Convention, error) {
	if err := Validate(Config{Convention: cfg}); err != nil {
		return nil, err
	}

	conv := convention.New()

	if len(cfg.ClassSuffixes) > 0 {
		conv.AddClassFilter(convention.NameEndsWith(cfg.ClassSuffixes...))
	}
	if len(cfg.Namespaces) > 0 {
		conv.AddClassFilter(convention.InNamespace(cfg.Namespaces...))
	}
	if cfg.RequireClassTag != "" {
		conv.AddClassFilter(convention.ClassHasTag(cfg.RequireClassTag))
	}

	excluded := append([]string(nil), cfg.ExcludeMethods...)
	if cfg.Lifecycle.Kind == LifecycleSetUp {
		excluded = append(excluded, cfg.Lifecycle.SetUpMethod)
	}
	if len(excluded) > 0 {
		conv.AddMethodFilter(convention.MethodNameNot(excluded...))
	}
	if cfg.RequireMethodTag != "" {
		conv.AddMethodFilter(convention.MethodHasTag(cfg.RequireMethodTag))
	}

	if cfg.Order == OrderName {
		conv.SetCaseOrder(convention.ByName)
	}
	if cfg.ParameterTag != "" {
		conv.SetParameterSource(convention.TagParameters(cfg.ParameterTag))
	}

	switch cfg.Lifecycle.Kind {
	case LifecyclePerClass:
		conv.SetLifecycle(func() lifecycle.Lifecycle { return lifecycle.PerClass{} })
	case LifecycleSetUp:
		method := cfg.Lifecycle.SetUpMethod
		conv.SetLifecycle(func() lifecycle.Lifecycle { return lifecycle.SetUp{Method: method} })
	}

	return conv, nil
}
