package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/antibyte/linebasic/pkg/configuration"
)

// useTestLogger installs a logger configured from debugSection and restores
// the previous one afterwards.
func useTestLogger(t *testing.T, debugSection string) string {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")
	cfg := filepath.Join(dir, "basic.toml")
	content := fmt.Sprintf("[Debug]\nlog_file = %q\n%s\n", logPath, debugSection)
	if err := os.WriteFile(cfg, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := configuration.Initialize(cfg); err != nil {
		t.Fatal(err)
	}

	l, err := newLogger()
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	previous := globalLogger
	globalLogger = l
	t.Cleanup(func() {
		Close()
		globalLogger = previous
	})
	return logPath
}

func TestAreaFiltering(t *testing.T) {
	logPath := useTestLogger(t, `
enable_debug_logging = true
log_level = "DEBUG"
log_store = true
log_parser = false
`)

	StoreInfo("program %s saved", "hello")
	Debug(AreaParser, "hidden parser entry")
	EnableArea(AreaParser)
	Debug(AreaParser, "visible parser entry")
	DisableArea(AreaStore)
	StoreInfo("hidden store entry")
	Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	log := string(data)
	for _, want := range []string{
		" INFO [logger_test.go:",
		"[STORE] program hello saved",
		" DEBUG [logger_test.go:",
		"[PARSER] visible parser entry",
	} {
		if !strings.Contains(log, want) {
			t.Errorf("log lacks %q:\n%s", want, log)
		}
	}
	for _, unwanted := range []string{"hidden parser entry", "hidden store entry"} {
		if strings.Contains(log, unwanted) {
			t.Errorf("log contains %q", unwanted)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	logPath := useTestLogger(t, `
enable_debug_logging = true
log_level = "WARN"
log_engine = true
`)

	Info(AreaEngine, "too quiet")
	Warn(AreaEngine, "loud enough")
	SetLevel(DEBUG)
	Debug(AreaEngine, "now visible")
	Close()

	data, _ := os.ReadFile(logPath)
	log := string(data)
	if strings.Contains(log, "too quiet") {
		t.Error("INFO entry written at WARN level")
	}
	if !strings.Contains(log, "loud enough") || !strings.Contains(log, "now visible") {
		t.Errorf("log = %q", log)
	}
}

func TestDisabledLoggerWritesNothing(t *testing.T) {
	logPath := useTestLogger(t, `enable_debug_logging = false`)

	StoreInfo("nothing to see")
	if _, err := os.Stat(logPath); !os.IsNotExist(err) {
		t.Error("disabled logger created its file")
	}
	if !globalLogger.isAreaEnabled(AreaStore) {
		t.Error("area switches should still load when logging is disabled")
	}
}

func TestEntryNamesCallSite(t *testing.T) {
	logPath := useTestLogger(t, `
enable_debug_logging = true
log_level = "DEBUG"
log_store = true
log_server = true
log_auth = true
`)

	StoreDebug("store entry")
	ServerWarn("server entry")
	AuthInfo("auth entry")
	Info(AreaStore, "plain entry")
	Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d entries:\n%s", len(lines), data)
	}
	for _, line := range lines {
		if !strings.Contains(line, "[logger_test.go:") {
			t.Errorf("entry does not name the calling file: %s", line)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DEBUG},
		{" WARNING ", WARN},
		{"ERROR", ERROR},
		{"fatal", FATAL},
		{"chatty", INFO},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
