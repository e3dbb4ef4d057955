package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/YuminosukeSato/gosvm/pkg/errors"
)

func TestTestLoggerCapturesLevelsAndFields(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", OperationKey, OperationFit)
	testLogger.Warn("warning message", ErrorCodeKey, ErrorConvergence)
	testLogger.Error("error message", fmt.Errorf("test error"), PairKey, "0-1")

	if buffer.Len() == 0 {
		t.Fatal("Expected log output, got empty string")
	}
	for _, msg := range []string{"debug message", "info message", "warning message", "error message"} {
		if !testLogger.ContainsMessage(msg) {
			t.Errorf("%q not found in output", msg)
		}
	}
	if !testLogger.ContainsField("number", 42.0) { // JSON decoding yields float64
		t.Error("Expected field number=42 not found")
	}
	if !testLogger.ContainsField(ErrAttrKey, "test error") {
		t.Error("leading error should be captured under the error key")
	}
}

func TestTestLoggerLevelFilter(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelWarn)
	testLogger.Debug("hidden")
	testLogger.Info("hidden too")
	testLogger.Warn("shown")

	entries, err := testLogger.GetLogEntries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0]["message"] != "shown" {
		t.Fatalf("unexpected entries: %v", entries)
	}
	if testLogger.Enabled(context.Background(), LevelInfo) {
		t.Error("info must be disabled at warn level")
	}
}

func TestTestLoggerWith(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)
	child := testLogger.With(ModelNameKey, "SVC", SVMTypeKey, "c_svc")
	child.Info("fit done", NSVKey, 3)

	if !testLogger.ContainsField(ModelNameKey, "SVC") {
		t.Error("context field missing")
	}
	if !testLogger.ContainsField(NSVKey, 3.0) {
		t.Error("record field missing")
	}
}

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(&buf, LevelInfo)
	logger := p.GetLoggerWithName("svm.solver").With(SVMTypeKey, "nu_svc")

	logger.Debug("dropped")
	logger.Info("optimization finished", IterationKey, 12)
	logger.Error("solve failed", errors.New("boom"), PairKey, "1-2")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 records, got %d: %s", len(lines), buf.String())
	}

	var rec map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatal(err)
	}
	if rec[ComponentKey] != "svm.solver" || rec[SVMTypeKey] != "nu_svc" || rec[IterationKey] != 12.0 {
		t.Errorf("unexpected record: %v", rec)
	}
	if err := json.Unmarshal([]byte(lines[1]), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["error"] != "boom" {
		t.Errorf("error not attached: %v", rec)
	}

	if logger.Enabled(context.Background(), LevelDebug) {
		t.Error("debug must be disabled")
	}
	p.SetLevel(LevelDebug)
	if !p.GetLogger().Enabled(context.Background(), LevelDebug) {
		t.Error("loggers created after SetLevel should see the new level")
	}
}

func TestSlogProviderAddsStacktrace(t *testing.T) {
	var buf bytes.Buffer
	p := NewSlogProvider(&buf, LevelDebug)
	logger := p.GetLoggerWithName("svm")

	logger.Error("train failed", errors.NewValueError("svm.Train", "bad input"))

	var rec map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["message"] != "train failed" || rec["severity"] != "ERROR" {
		t.Errorf("unexpected record: %v", rec)
	}
	if _, ok := rec[StacktraceAttrKey]; !ok {
		t.Errorf("expected %s attribute, got %v", StacktraceAttrKey, rec)
	}

	p.SetLevel(LevelError)
	if logger.Enabled(context.Background(), LevelWarn) {
		t.Error("SetLevel should apply to existing slog loggers")
	}
}

func TestSetProviderRoutesWarnings(t *testing.T) {
	provider, testLogger := NewTestLoggerProvider(LevelDebug)
	prev := SetProvider(provider)
	defer SetProvider(prev)

	GetLoggerWithName("svm").Info("hello")
	errors.Warn(errors.NewConvergenceWarning("smo", 7, "max iterations reached"))

	if !testLogger.ContainsField(ComponentKey, "svm") {
		t.Error("named logger should carry the component")
	}
	if !testLogger.ContainsMessage("smo failed to converge after 7 iterations") {
		t.Error("warning should be routed to the installed provider")
	}
}

func TestToLogLevel(t *testing.T) {
	tests := map[string]Level{"debug": LevelDebug, "info": LevelInfo, "warn": LevelWarn, "error": LevelError}
	for in, want := range tests {
		if got := ToLogLevel(in); got != want {
			t.Errorf("ToLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic for an unknown level")
		}
	}()
	ToLogLevel("verbose")
}
