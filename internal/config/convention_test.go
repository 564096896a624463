package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conventest/internal/execution"
	"conventest/internal/lifecycle"
	"conventest/internal/metadata"
)

const (
	focusTag  = "focus"
	valuesTag = "values"
)

func noop(any) error { return nil }

func configModule() *metadata.Module {
	class := func(namespace, name string, tags []metadata.Tag, methods ...*metadata.Method) *metadata.Type {
		return &metadata.Type{
			Namespace:   namespace,
			Name:        name,
			Tags:        tags,
			Methods:     methods,
			Constructor: func() (any, error) { return &struct{}{}, nil },
		}
	}
	return metadata.NewModule("Sample",
		class("Sample", "AlphaTests", nil,
			metadata.Action("SetUp", noop),
			metadata.Action("Zeta", noop),
			metadata.Action("Alpha", noop).WithTags(metadata.NewTag(focusTag)),
			metadata.Action("Helper", noop),
		),
		class("Sample.Nested", "BetaSuite", []metadata.Tag{metadata.NewTag(focusTag)},
			metadata.Action("Only", noop),
		),
		class("Other", "GammaTests", nil,
			metadata.Action("Elsewhere", noop),
		),
	)
}

func discover(t *testing.T, cfg ConventionConfig) []string {
	t.Helper()
	conv, err := BuildConvention(cfg)
	require.NoError(t, err)

	tests, err := execution.NewRunner(configModule(), conv).Discover(context.Background())
	require.NoError(t, err)

	names := make([]string, 0, len(tests))
	for _, test := range tests {
		names = append(names, test.Name())
	}
	return names
}

func TestBuildConvention_Default(t *testing.T) {
	names := discover(t, GetDefaultConfig().Convention)
	assert.Equal(t, []string{
		"Sample.AlphaTests.SetUp",
		"Sample.AlphaTests.Zeta",
		"Sample.AlphaTests.Alpha",
		"Sample.AlphaTests.Helper",
		"Other.GammaTests.Elsewhere",
	}, names)
}

func TestBuildConvention_Filters(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ConventionConfig
		expected []string
	}{
		{
			name: "set-up lifecycle excludes its method and name order sorts",
			cfg: ConventionConfig{
				ClassSuffixes:  []string{"Tests"},
				Namespaces:     []string{"Sample"},
				ExcludeMethods: []string{"Helper"},
				Order:          OrderName,
				Lifecycle:      LifecycleConfig{Kind: LifecycleSetUp, SetUpMethod: "SetUp"},
			},
			expected: []string{"Sample.AlphaTests.Alpha", "Sample.AlphaTests.Zeta"},
		},
		{
			name: "required class tag",
			cfg: ConventionConfig{
				RequireClassTag: focusTag,
			},
			expected: []string{"Sample.Nested.BetaSuite.Only"},
		},
		{
			name: "required method tag",
			cfg: ConventionConfig{
				ClassSuffixes:    []string{"Tests"},
				RequireMethodTag: focusTag,
			},
			expected: []string{"Sample.AlphaTests.Alpha"},
		},
		{
			name: "several suffixes and nested namespaces",
			cfg: ConventionConfig{
				ClassSuffixes: []string{"Suite", "Tests"},
				Namespaces:    []string{"Sample"},
				Order:         OrderName,
			},
			expected: []string{
				"Sample.AlphaTests.Alpha",
				"Sample.AlphaTests.Helper",
				"Sample.AlphaTests.SetUp",
				"Sample.AlphaTests.Zeta",
				"Sample.Nested.BetaSuite.Only",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, discover(t, tt.cfg))
		})
	}
}

func TestBuildConvention_Lifecycles(t *testing.T) {
	tests := []struct {
		kind     LifecycleKind
		expected lifecycle.Lifecycle
	}{
		{"", lifecycle.PerCase{}},
		{LifecyclePerCase, lifecycle.PerCase{}},
		{LifecyclePerClass, lifecycle.PerClass{}},
		{LifecycleSetUp, lifecycle.SetUp{Method: "Prepare"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			conv, err := BuildConvention(ConventionConfig{
				Lifecycle: LifecycleConfig{Kind: tt.kind, SetUpMethod: "Prepare"},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, conv.Freeze().NewLifecycle())
		})
	}
}

func TestBuildConvention_ParameterTag(t *testing.T) {
	method := metadata.NewMethod("Add", 2, nil).WithTags(
		metadata.Tag{Kind: valuesTag, Value: []any{1, 2}},
		metadata.Tag{Kind: valuesTag, Value: []any{3, 4}},
	)

	conv, err := BuildConvention(ConventionConfig{ParameterTag: valuesTag})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{1, 2}, {3, 4}}, conv.Freeze().Parameters(method))
}

func TestBuildConvention_Invalid(t *testing.T) {
	_, err := BuildConvention(ConventionConfig{Order: "shuffled"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
