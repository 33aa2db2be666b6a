package logger

import (
	"strings"
	"testing"
)

func TestUsableWithoutInitLogger(t *testing.T) {
	// Packages log during tests and background paths before main wires the
	// configured backends; the default backend must already be in place.
	Warning("token refresh rejected by provider")

	logs := GetLogs(10, "warning")
	found := false
	for _, line := range logs {
		if strings.Contains(line, "token refresh rejected by provider") {
			found = true
		}
	}
	if !found {
		t.Errorf("GetLogs = %v, expected the warning entry to be buffered", logs)
	}
}

func TestGetLogsLevelFilter(t *testing.T) {
	Debug("verbose detail")
	Error("hard failure")

	for _, line := range GetLogs(100, "error") {
		if strings.Contains(line, "verbose detail") {
			t.Errorf("GetLogs(error) returned a debug entry: %s", line)
		}
	}

	found := false
	for _, line := range GetLogs(100, "debug") {
		if strings.Contains(line, "verbose detail") {
			found = true
		}
	}
	if !found {
		t.Errorf("GetLogs(debug) missing the debug entry")
	}
}
