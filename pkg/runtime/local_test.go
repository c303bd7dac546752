package runtime

import (
	"context"
	"testing"
	"time"
)

func TestLocalRuntimeExecuteSuccess(t *testing.T) {
	rt := NewLocalRuntime()

	var lines []LogLine
	result, err := rt.Execute(context.Background(), ContainerSpec{
		RunID: "run-1",
		Image: "echo hello; echo oops 1>&2",
	}, func(l LogLine) { lines = append(lines, l) })
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", result.ExitCode)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %+v", len(lines), lines)
	}
}

func TestLocalRuntimeExecuteNonZeroExit(t *testing.T) {
	rt := NewLocalRuntime()

	result, err := rt.Execute(context.Background(), ContainerSpec{
		RunID: "run-2",
		Image: "exit 7",
	}, func(LogLine) {})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.ExitCode != 7 {
		t.Fatalf("expected exit code 7, got %d", result.ExitCode)
	}
}

func TestLocalRuntimeExecuteTimeout(t *testing.T) {
	rt := NewLocalRuntime()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := rt.Execute(ctx, ContainerSpec{
		RunID: "run-3",
		Image: "sleep 5",
	}, func(LogLine) {})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.TimedOut || result.ExitCode != 143 {
		t.Fatalf("expected timed-out exit 143, got %+v", result)
	}
}

func TestClassifyLevel(t *testing.T) {
	cases := []struct {
		stream, line string
		want         LogLevel
	}{
		{"stdout", "INFO starting crawl", LogInfo},
		{"stdout", "DEBUG queue depth 3", LogDebug},
		{"stderr", "WARN retrying request", LogWarn},
		{"stderr", "unhandled exception", LogError},
		{"stdout", "plain message", LogInfo},
	}
	for _, c := range cases {
		if got := classifyLevel(c.stream, c.line); got != c.want {
			t.Errorf("classifyLevel(%q,%q) = %v, want %v", c.stream, c.line, got, c.want)
		}
	}
}
