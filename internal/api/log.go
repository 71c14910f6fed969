package api

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"geoscan/pkg/logging"
)

// Regex to capture key=value or key="value with spaces"
var logRegex = regexp.MustCompile(`([a-zA-Z0-9_\-.]+)=(?:"([^"]*)"|([^ ]+))`)

// handleLatestLog returns the last captured log line, or the last ?lines=n lines.
func handleLatestLog(w http.ResponseWriter, r *http.Request) {
	n, ok := linesParam(r)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{
			"log": formatLogLine(logging.GlobalLogCapture.GetLastLine()),
		})
		return
	}
	lines := logging.GlobalLogCapture.Lines(n)
	for i, l := range lines {
		lines[i] = formatLogLine(l)
	}
	writeJSON(w, http.StatusOK, map[string][]string{"lines": lines})
}

// handleEvents returns recent scan group events, oldest first.
func handleEvents(w http.ResponseWriter, r *http.Request) {
	n, _ := linesParam(r)
	events := logging.GlobalEventCapture.Lines(n)
	if events == nil {
		events = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"events": events})
}

func linesParam(r *http.Request) (int, bool) {
	v := r.URL.Query().Get("lines")
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// formatLogLine parses the raw log line and applies filtering rules.
// Rules: Format time to HH:MM:SS, unwrap msg, sort other params, remove params > 20 chars.
// Output: HH:MM:SS MsgValue (key=value, key=value)
func formatLogLine(raw string) string {
	matches := logRegex.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return raw
	}

	var msg string
	var timeStr string
	var params []string

	for _, m := range matches {
		key := m[1]
		val := m[2]
		if val == "" {
			val = m[3]
		}
		val = strings.TrimSpace(val)

		if key == "time" {
			// Parse RFC3339 time (default for slog)
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				timeStr = t.Format("15:04:05")
			}
			continue
		}

		if key == "level" {
			continue
		}

		if key == "msg" {
			msg = val
			continue
		}

		// Filter long values (User request: remove params longer than 20 chars)
		// We treat value length as the constraint.
		if len(val) > 20 {
			continue
		}

		params = append(params, fmt.Sprintf("%s=%s", key, val))
	}

	if msg == "" {
		return raw
	}

	sort.Strings(params) // deterministic output

	output := msg
	if timeStr != "" {
		output = fmt.Sprintf("%s %s", timeStr, msg)
	}

	if len(params) > 0 {
		return fmt.Sprintf("%s (%s)", output, strings.Join(params, ", "))
	}
	return output
}
