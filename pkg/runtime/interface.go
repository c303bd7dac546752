// Package runtime defines the ContainerRuntime contract consumed by the run
// orchestrator. The orchestrator never talks to Docker or Kubernetes
// directly — it only knows how to Execute a ContainerSpec and read back an
// exit code and a stream of log lines.
package runtime

import (
	"context"
	"time"
)

// LogLevel classifies a single log line emitted by a running container.
type LogLevel string

const (
	LogDebug LogLevel = "DEBUG"
	LogInfo  LogLevel = "INFO"
	LogWarn  LogLevel = "WARN"
	LogError LogLevel = "ERROR"
)

// LogLine is one line of demultiplexed container output.
type LogLine struct {
	Stream    string // "stdout" or "stderr"
	Level     LogLevel
	Message   string
	Timestamp time.Time
}

// ContainerSpec describes everything needed to launch one Actor run. Env
// already contains the full environment-injection block — the runtime
// just passes it through.
type ContainerSpec struct {
	RunID   string
	Image   string
	Env     map[string]string
	Memory  int64 // megabytes, 0 = runtime default
	Timeout time.Duration
}

// ExecResult is returned once a container has terminated, either on its own
// or because the caller requested a stop.
type ExecResult struct {
	ExitCode int
	// TimedOut is true when the runtime had to stop the container after the
	// caller's context deadline elapsed; ExitCode is then 143, and the
	// orchestrator records the run as TIMED-OUT.
	TimedOut bool
}

// LogSink receives demultiplexed log lines as they are produced. It must not
// block for long — implementations typically forward to the log pipeline's
// ring buffer, which is itself non-blocking.
type LogSink func(LogLine)

// ContainerRuntime is the collaborator contract for running one Actor
// container to completion. Implementations are responsible for:
//   - starting the container with the given spec's environment injected,
//   - demultiplexing stdout/stderr into LogLines delivered to the sink,
//   - honoring ctx cancellation by issuing a graceful stop with a bounded
//     grace window before forcing termination,
//   - mapping the underlying process/container exit status to ExecResult.
type ContainerRuntime interface {
	// Execute runs spec to completion (or until ctx is done) and returns its
	// outcome. It blocks until the container has exited.
	Execute(ctx context.Context, spec ContainerSpec, sink LogSink) (ExecResult, error)

	// Stop asks a still-running container for runID to terminate. It first
	// sends a graceful signal and waits up to grace before forcing removal.
	// Stop is safe to call even if Execute has already returned.
	Stop(ctx context.Context, runID string, grace time.Duration) error

	// Name identifies this backend ("docker", "k8s", "local") for the
	// runtime-introspection endpoint (SPEC_FULL.md §6).
	Name() string
}
