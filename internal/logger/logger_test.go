package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func restore(t *testing.T) {
	t.Helper()
	saved, savedLevel := Log, Level()
	t.Cleanup(func() {
		Log = saved
		Sugar = saved.Sugar()
		level.SetLevel(savedLevel)
	})
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	Sync()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	return string(content)
}

func TestLogRotation(t *testing.T) {
	restore(t)
	dir := t.TempDir()
	logFile := filepath.Join(dir, "test.log")

	// 1MB is the smallest size lumberjack rotates at.
	cfg := FileConfig{Path: logFile, MaxSizeMB: 1, MaxBackups: 2, MaxAgeDays: 1}
	if err := InitWithFileConfig("debug", cfg, false); err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}

	payload := strings.Repeat("x", 200)
	for i := 0; i < 15000; i++ {
		Sugar.Infof("entry %d: %s", i, payload)
	}
	Sync()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read temp dir: %v", err)
	}
	rotated := 0
	for _, e := range entries {
		name := e.Name()
		if name == "test.log" || !strings.HasPrefix(name, "test") {
			continue
		}
		rotated++
		// lumberjack names backups test-YYYY-MM-DDTHH-MM-SS.SSS.log
		if !strings.Contains(name, "-20") {
			t.Errorf("rotated file %s doesn't have expected timestamp format", name)
		}
	}
	if rotated == 0 {
		t.Error("expected at least one rotated file")
	}
}

func TestLogLevels(t *testing.T) {
	restore(t)
	dir := t.TempDir()

	tests := []struct {
		level    string
		expected []string
		excluded []string
	}{
		{"error", []string{"ERROR"}, []string{"WARN", "INFO", "DEBUG"}},
		{"warn", []string{"ERROR", "WARN"}, []string{"INFO", "DEBUG"}},
		{"info", []string{"ERROR", "WARN", "INFO"}, []string{"DEBUG"}},
		{"debug", []string{"ERROR", "WARN", "INFO", "DEBUG"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logFile := filepath.Join(dir, tt.level+".log")
			if err := InitWithFileConfig(tt.level, FileConfig{Path: logFile, MaxSizeMB: 10}, false); err != nil {
				t.Fatalf("failed to init logger: %v", err)
			}

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")

			content := readLog(t, logFile)
			for _, exp := range tt.expected {
				if !strings.Contains(content, exp) {
					t.Errorf("expected %s in log output", exp)
				}
			}
			for _, exc := range tt.excluded {
				if strings.Contains(content, exc) {
					t.Errorf("unexpected %s in log output for level %s", exc, tt.level)
				}
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"":      zapcore.InfoLevel,
		"debug": zapcore.DebugLevel,
		"WARN":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		if err != nil {
			t.Errorf("ParseLevel(%q): unexpected error %v", name, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q): expected %v, got %v", name, want, got)
		}
	}

	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestSetup_InvalidLevelKeepsLogger(t *testing.T) {
	restore(t)
	before := Log
	if err := Setup(Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if Log != before {
		t.Error("expected the previous logger to stay in place")
	}
}

func TestSetLevel(t *testing.T) {
	restore(t)
	logFile := filepath.Join(t.TempDir(), "level.log")
	if err := InitWithFileConfig("info", FileConfig{Path: logFile, MaxSizeMB: 1}, false); err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}

	Debug("hidden")
	if err := SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	Debug("shown")

	content := readLog(t, logFile)
	if strings.Contains(content, "hidden") {
		t.Error("expected debug entry dropped before SetLevel")
	}
	if !strings.Contains(content, "shown") {
		t.Error("expected debug entry written after SetLevel")
	}
	if Level() != zapcore.DebugLevel {
		t.Errorf("expected debug level, got %v", Level())
	}
	if err := SetLevel("nope"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestSetup_JSON(t *testing.T) {
	restore(t)
	logFile := filepath.Join(t.TempDir(), "json.log")
	if err := Setup(Options{Level: "info", File: FileConfig{Path: logFile, MaxSizeMB: 1}, JSON: true}); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	Named("renderer").Info("drawn", zap.Int("chunks", 3))

	line := strings.TrimSpace(readLog(t, logFile))
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("expected a JSON line, got %q: %v", line, err)
	}
	if entry["logger"] != "renderer" || entry["msg"] != "drawn" || entry["chunks"] != float64(3) {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestDefaultFileConfig(t *testing.T) {
	cfg := DefaultFileConfig("/tmp/test.log")
	want := FileConfig{Path: "/tmp/test.log", MaxSizeMB: 50, MaxBackups: 3, MaxAgeDays: 7, Compress: true}
	if cfg != want {
		t.Errorf("expected %+v, got %+v", want, cfg)
	}
}

func TestNopBeforeInit(t *testing.T) {
	restore(t)
	Log = zap.NewNop()
	Sugar = Log.Sugar()

	// Must not panic without Init.
	Debug("debug message")
	Warn("warn message")
	Named("renderer").Info("named message")
	Sync()
}

func TestNamed(t *testing.T) {
	restore(t)
	logFile := filepath.Join(t.TempDir(), "named.log")
	if err := InitWithFileConfig("info", FileConfig{Path: logFile, MaxSizeMB: 1}, false); err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}

	Named("model").Info("compiled")

	if content := readLog(t, logFile); !strings.Contains(content, "model") {
		t.Errorf("expected logger name in output, got %q", content)
	}
}
