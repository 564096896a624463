package execution

import (
	"bytes"
	"io"
	"os"
	"sync"
)

// stdoutMu serializes redirections of os.Stdout.
var stdoutMu sync.Mutex

// outputCapture redirects os.Stdout into a buffer while a case runs.
type outputCapture struct {
	original *os.File
	reader   *os.File
	writer   *os.File
	buf      bytes.Buffer
	wg       sync.WaitGroup
}

// startCapture replaces os.Stdout with a pipe. The caller must call stop.
func startCapture() (*outputCapture, error) {
	stdoutMu.Lock()

	reader, writer, err := os.Pipe()
	if err != nil {
		stdoutMu.Unlock()
		return nil, err
	}

	oc := &outputCapture{original: os.Stdout, reader: reader, writer: writer}
	os.Stdout = writer

	oc.wg.Add(1)
	go func() {
		defer oc.wg.Done()
		_, _ = io.Copy(&oc.buf, reader)
	}()
	return oc, nil
}

// stop restores os.Stdout and returns everything written while capturing.
func (oc *outputCapture) stop() string {
	defer stdoutMu.Unlock()

	os.Stdout = oc.original
	_ = oc.writer.Close()
	oc.wg.Wait()
	_ = oc.reader.Close()
	return oc.buf.String()
}

// captureOutput runs fn with os.Stdout redirected and returns what it wrote.
// When the pipe cannot be created fn still runs and nothing is captured.
func captureOutput(enabled bool, fn func()) string {
	if !enabled {
		fn()
		return ""
	}
	oc, err := startCapture()
	if err != nil {
		fn()
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			oc.stop()
			panic(r)
		}
	}()
	fn()
	return oc.stop()
}
