package runtime

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// DockerRuntime executes Actor runs as Docker containers on a local or
// remote Docker daemon, implementing the Execute/Stop contract in
// interface.go.
type DockerRuntime struct {
	cli *client.Client

	mu         sync.Mutex
	containers map[string]string // runID -> container id
}

// NewDockerRuntime builds a DockerRuntime from the ambient Docker
// environment (DOCKER_HOST, DOCKER_CERT_PATH, …), matching how
// client.NewClientWithOpts(client.FromEnv) is conventionally wired.
func NewDockerRuntime() (*DockerRuntime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker runtime: %w", err)
	}
	return &DockerRuntime{cli: cli, containers: make(map[string]string)}, nil
}

func (d *DockerRuntime) Name() string { return "docker" }

func (d *DockerRuntime) Execute(ctx context.Context, spec ContainerSpec, sink LogSink) (ExecResult, error) {
	env := make([]string, 0, len(spec.Env))
	for k, v := range spec.Env {
		env = append(env, k+"="+v)
	}

	var memBytes int64
	if spec.Memory > 0 {
		memBytes = spec.Memory * 1024 * 1024
	}

	resp, err := d.cli.ContainerCreate(ctx, &container.Config{
		Image: spec.Image,
		Env:   env,
		Labels: map[string]string{
			"crawlee-cloud.run-id": spec.RunID,
		},
	}, &container.HostConfig{
		Resources: container.Resources{Memory: memBytes},
	}, nil, nil, "crawlee-run-"+spec.RunID)
	if err != nil {
		return ExecResult{}, fmt.Errorf("create container: %w", err)
	}

	d.mu.Lock()
	d.containers[spec.RunID] = resp.ID
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.containers, spec.RunID)
		d.mu.Unlock()
	}()

	if err := d.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return ExecResult{}, fmt.Errorf("start container: %w", err)
	}

	logsDone := make(chan struct{})
	go func() {
		defer close(logsDone)
		d.streamLogs(ctx, resp.ID, sink)
	}()

	statusCh, errCh := d.cli.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		<-logsDone
		if ctx.Err() != nil {
			return ExecResult{ExitCode: 143, TimedOut: true}, nil
		}
		return ExecResult{}, fmt.Errorf("wait container: %w", err)
	case status := <-statusCh:
		<-logsDone
		return ExecResult{ExitCode: int(status.StatusCode)}, nil
	case <-ctx.Done():
		// Deadline hit: ask for a graceful stop, report the TIMED-OUT exit
		// code regardless of what the container ultimately reports once it
		// does exit.
		_ = d.Stop(context.Background(), spec.RunID, 10*time.Second)
		<-logsDone
		return ExecResult{ExitCode: 143, TimedOut: true}, nil
	}
}

func (d *DockerRuntime) streamLogs(ctx context.Context, containerID string, sink LogSink) {
	out, err := d.cli.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
		Timestamps: false,
	})
	if err != nil {
		return
	}
	defer out.Close()

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()

	go func() {
		defer stdoutW.Close()
		defer stderrW.Close()
		// stdcopy demultiplexes Docker's framed multiplex stream: the first
		// byte of each frame indicates which channel (stdout/stderr) it
		// belongs to.
		_, _ = stdcopy.StdCopy(stdoutW, stderrW, out)
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); scanInto("stdout", stdoutR, sink) }()
	go func() { defer wg.Done(); scanInto("stderr", stderrR, sink) }()
	wg.Wait()
}

func scanInto(stream string, r io.Reader, sink LogSink) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		sink(LogLine{
			Stream:    stream,
			Level:     classifyLevel(stream, line),
			Message:   line,
			Timestamp: time.Now(),
		})
	}
}

func (d *DockerRuntime) Stop(ctx context.Context, runID string, grace time.Duration) error {
	d.mu.Lock()
	id, ok := d.containers[runID]
	d.mu.Unlock()
	if !ok {
		return nil
	}

	timeoutSecs := int(grace.Seconds())
	if err := d.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeoutSecs}); err != nil {
		// Escalate to forced removal if the graceful stop itself failed.
		return d.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
	}
	return nil
}
