package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conventest/internal/convention"
	"conventest/internal/execution"
	"conventest/internal/lifecycle"
	"conventest/internal/metadata"
	"conventest/internal/reporting"
)

type AdapterTests struct{}

func (*AdapterTests) Second() {}

func (*AdapterTests) First() {}

func decode(t *testing.T, out string) []TestCaseModel {
	var models []TestCaseModel
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var model TestCaseModel
		require.NoError(t, json.Unmarshal([]byte(line), &model))
		models = append(models, model)
	}
	return models
}

func TestDiscoveryListener_SendsModelsWithSourceLocations(t *testing.T) {
	var out bytes.Buffer
	module := metadata.NewModule("Sample", metadata.Reflect[AdapterTests]("Sample"))
	listener := NewDiscoveryListener(NewJSONLines(&out), module.Location())

	runner := execution.NewRunner(module, convention.Default(), execution.WithListeners(listener))
	tests, err := runner.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, tests, 2)

	models := decode(t, out.String())
	require.Len(t, models, 2)
	assert.Equal(t, "Sample.AdapterTests.First", models[0].MethodGroup)
	assert.Equal(t, "Sample.AdapterTests.Second", models[1].MethodGroup)
	for _, model := range models {
		assert.Equal(t, "Sample", model.AssemblyPath)
		assert.True(t, strings.HasSuffix(model.CodeFilePath, "adapter_test.go"), model.CodeFilePath)
		assert.Positive(t, model.LineNumber)
	}
}

func TestDiscoveryListener_SourceLookupFailureStillSendsModel(t *testing.T) {
	var out bytes.Buffer
	listener := NewDiscoveryListener(NewJSONLines(&out), "Sample").
		WithSourceLocator(func(*metadata.Method) (string, int, bool) { panic("no symbols") })

	err := listener.Handle(context.Background(), &reporting.TestDiscovered{
		Test:   lifecycle.Test{Class: "Sample.AdapterTests", Method: "First"},
		Method: metadata.Action("First", func(any) error { return nil }),
	})
	require.NoError(t, err)

	models := decode(t, out.String())
	require.Len(t, models, 1)
	assert.Equal(t, TestCaseModel{MethodGroup: "Sample.AdapterTests.First", AssemblyPath: "Sample"}, models[0])
}

type failingSink struct{}

func (failingSink) SendTestCase(TestCaseModel) error { return errors.New("host went away") }

func TestDiscoveryListener_SinkFaultIsReturned(t *testing.T) {
	listener := NewDiscoveryListener(failingSink{}, "Sample")
	err := listener.HandleMethodGroup(MethodGroupDiscovered{
		MethodGroup: MethodGroup{Class: "Sample.AdapterTests", Method: "First"},
	})
	assert.EqualError(t, err, "host went away")
}
