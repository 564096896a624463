// Package ci posts case results to a CI build server's test API.
package ci

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"conventest/internal/lifecycle"
	"conventest/internal/reporting"
	"conventest/pkg/logging"
)

// TestFramework identifies this runner in posted results.
const TestFramework = "conventest"

const (
	envEnabled = "APPVEYOR"
	envAPIURL  = "APPVEYOR_API_URL"
	testsPath  = "api/tests"
)

// TestResult is the body posted for every completed case.
type TestResult struct {
	TestFramework        string `json:"TestFramework"`
	FileName             string `json:"FileName"`
	TestName             string `json:"TestName"`
	Outcome              string `json:"Outcome"`
	DurationMilliseconds string `json:"DurationMilliseconds"`
	StdOut               string `json:"StdOut"`
	ErrorMessage         string `json:"ErrorMessage,omitempty"`
	ErrorStackTrace      string `json:"ErrorStackTrace,omitempty"`
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("posting test result to %s failed with status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Listener posts one TestResult per terminal case event. It is asynchronous:
// the bus waits for each post to finish before the next event.
type Listener struct {
	endpoint string
	client   *http.Client

	mu      sync.Mutex
	runName string
}

// Option configures a Listener.
type Option func(*Listener)

// WithHTTPClient replaces the pooled client.
func WithHTTPClient(client *http.Client) Option {
	return func(l *Listener) {
		l.client = client
	}
}

// New creates a listener posting to <baseURL>/api/tests.
func New(baseURL string, opts ...Option) (*Listener, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid CI base URL %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid CI base URL %q: scheme and host are required", baseURL)
	}

	l := &Listener{
		endpoint: base.ResolveReference(&url.URL{Path: testsPath}).String(),
		client:   cleanhttp.DefaultPooledClient(),
		runName:  "Unknown",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// FromEnvironment creates a listener when running on AppVeyor, returning nil otherwise.
// A non-empty override replaces the API URL from the environment.
func FromEnvironment(override string) (*Listener, error) {
	if os.Getenv(envEnabled) != "True" {
		return nil, nil
	}
	baseURL := override
	if baseURL == "" {
		baseURL = os.Getenv(envAPIURL)
	}
	if baseURL == "" {
		return nil, nil
	}
	logging.Info("CIListener", "Reporting results to %s", baseURL)
	return New(baseURL)
}

// Endpoint returns the URL results are posted to.
func (l *Listener) Endpoint() string {
	return l.endpoint
}

// EventTypes implements reporting.Interested.
func (l *Listener) EventTypes() []reporting.EventType {
	return []reporting.EventType{
		reporting.EventTypeAssemblyStarted,
		reporting.EventTypeCaseSkipped,
		reporting.EventTypeCasePassed,
		reporting.EventTypeCaseFailed,
	}
}

// HandleAsync implements reporting.AsyncListener.
func (l *Listener) HandleAsync(ctx context.Context, event reporting.Event) <-chan error {
	done := make(chan error, 1)

	switch e := event.(type) {
	case *reporting.AssemblyStarted:
		l.mu.Lock()
		l.runName = reporting.RunName(e.Module, e.Framework)
		l.mu.Unlock()
		close(done)
	case reporting.CaseCompleted:
		result := l.testResult(e)
		go func() {
			done <- l.post(ctx, result)
		}()
	default:
		close(done)
	}
	return done
}

func (l *Listener) testResult(e reporting.CaseCompleted) TestResult {
	l.mu.Lock()
	runName := l.runName
	l.mu.Unlock()

	r := e.Result()
	result := TestResult{
		TestFramework:        TestFramework,
		FileName:             runName,
		TestName:             r.Name,
		Outcome:              e.Status().String(),
		DurationMilliseconds: strconv.FormatInt(int64(r.Duration.Round(time.Millisecond)/time.Millisecond), 10),
		StdOut:               r.Output,
	}
	if failed, ok := e.(*reporting.CaseFailed); ok && failed.Exception != nil {
		result.ErrorMessage = failed.Message()
		result.ErrorStackTrace = failed.Exception.TypeName() + "\n" + failed.Exception.Stack() +
			lifecycle.SecondaryText(failed.Secondary)
	}
	return result
}

func (l *Listener) post(ctx context.Context, result TestResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal test result: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post test result for %s: %w", result.TestName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{URL: l.endpoint, StatusCode: resp.StatusCode, Body: string(text)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	logging.Debug("CIListener", "Posted %s result for %s", result.Outcome, result.TestName)
	return nil
}
