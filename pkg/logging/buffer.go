package logging

import (
	"strings"
	"sync"
)

// captureSize is how many lines a LogCaptureWriter keeps.
const captureSize = 64

// LogCaptureWriter is a thread-safe writer that keeps the most recent lines in a ring.
type LogCaptureWriter struct {
	mu    sync.RWMutex
	lines [captureSize]string
	next  int
	count int
}

// GlobalLogCapture captures server log lines for the dashboard.
var GlobalLogCapture = &LogCaptureWriter{}

// GlobalEventCapture captures scan-group events.
var GlobalEventCapture = &LogCaptureWriter{}

// Write implements io.Writer. Each call is stored as one line.
func (w *LogCaptureWriter) Write(p []byte) (n int, err error) {
	line := strings.TrimRight(string(p), "\n")

	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines[w.next] = line
	w.next = (w.next + 1) % captureSize
	if w.count < captureSize {
		w.count++
	}
	return len(p), nil
}

// GetLastLine returns the most recent line.
func (w *LogCaptureWriter) GetLastLine() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.count == 0 {
		return ""
	}
	return w.lines[(w.next-1+captureSize)%captureSize]
}

// Lines returns up to n recent lines, oldest first.
func (w *LogCaptureWriter) Lines(n int) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if n <= 0 || n > w.count {
		n = w.count
	}
	out := make([]string, n)
	start := (w.next - n + captureSize) % captureSize
	for i := range out {
		out[i] = w.lines[(start+i)%captureSize]
	}
	return out
}
