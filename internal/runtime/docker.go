package runtime

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"neoharness/pkg/runtime"
)

// DockerRuntime implements the ContainerRuntime contract using the Docker
// client.
type DockerRuntime struct {
	client *client.Client
}

// NewDockerRuntime creates a new DockerRuntime using client.FromEnv and
// verifies the daemon is reachable. The ping is retried briefly since CI
// daemons can lag behind the test process.
func NewDockerRuntime() (*DockerRuntime, error) {
	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	ctx := context.Background()
	backoff := retry.WithMaxRetries(3, retry.NewConstant(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if _, err := dockerClient.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Docker daemon: %w", err)
	}

	return &DockerRuntime{client: dockerClient}, nil
}

// PullImage pulls a Docker image.
func (d *DockerRuntime) PullImage(ctx context.Context, ref string) error {
	slog.Info("Pulling Docker image", "image", ref)

	reader, err := d.client.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	defer reader.Close()

	// Drain the pull output without printing it.
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to stream image pull output: %w", err)
	}

	slog.Info("Successfully pulled Docker image", "image", ref)
	return nil
}

// StartContainer creates and starts a container for the image, follows its
// output until both readiness markers have been observed, resolves the
// published host ports, and registers the resulting engine state on the
// image before returning.
func (d *DockerRuntime) StartContainer(ctx context.Context, img runtime.RunnableImage) (runtime.Container, error) {
	ref := runtime.ImageRef(img)
	name := "neoharness-" + uuid.New().String()
	slog.Info("Starting container", "image", ref, "name", name)

	exposed := nat.PortSet{}
	for _, p := range img.ExposedPorts() {
		port, err := nat.NewPort("tcp", strconv.Itoa(p))
		if err != nil {
			return nil, fmt.Errorf("invalid container port %d: %w", p, err)
		}
		exposed[port] = struct{}{}
	}

	containerConfig := &container.Config{
		Image:        ref,
		Env:          envSlice(img.Env()),
		ExposedPorts: exposed,
	}
	hostConfig := &container.HostConfig{
		PublishAllPorts: true,
	}

	resp, err := d.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}
	containerID := resp.ID

	if err := d.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		d.removeContainer(containerID)
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	if err := d.awaitReady(ctx, containerID, img.ReadinessMarkers()); err != nil {
		d.removeContainer(containerID)
		return nil, err
	}

	state, err := d.portState(ctx, containerID, img.ExposedPorts())
	if err != nil {
		d.removeContainer(containerID)
		return nil, err
	}
	img.RegisterStarted(state)

	slog.Info("Container is ready", "containerID", containerID)
	return &dockerContainer{client: d.client, id: containerID}, nil
}

// envSlice converts the environment mapping into Docker's KEY=VALUE slice,
// sorted so container creation is deterministic.
func envSlice(env map[string]string) []string {
	vars := make([]string, 0, len(env))
	for key, value := range env {
		vars = append(vars, fmt.Sprintf("%s=%s", key, value))
	}
	slices.Sort(vars)
	return vars
}

// awaitReady follows the container log stream until both readiness markers
// have been observed. Cancellation of ctx tears the stream down.
func (d *DockerRuntime) awaitReady(ctx context.Context, containerID string, markers [2]string) error {
	logs, err := d.client.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return fmt.Errorf("failed to get container logs: %w", err)
	}
	defer logs.Close()

	return watchForMarkers(logs, markers)
}

// watchForMarkers scans the log stream line by line until every marker has
// been seen, in any occurrence order. Returns an error if the stream ends or
// fails first.
func watchForMarkers(r io.Reader, markers [2]string) error {
	var seen [2]bool
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := cleanDockerLogLine(scanner.Text())
		if line == "" {
			continue
		}
		slog.Debug("Container output", "line", line)
		for i, marker := range markers {
			if !seen[i] && strings.Contains(line, marker) {
				seen[i] = true
			}
		}
		if seen[0] && seen[1] {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading container output: %w", err)
	}
	return fmt.Errorf("container output ended before readiness markers %q and %q were both seen", markers[0], markers[1])
}

// ansiRegex matches ANSI escape sequences.
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// cleanDockerLogLine strips the 8-byte multiplexed stream header Docker
// prefixes to log lines, ANSI escape sequences, and stray control
// characters, then trims whitespace.
func cleanDockerLogLine(line string) string {
	if len(line) >= 8 && (line[0] == 1 || line[0] == 2) {
		line = line[8:]
	}
	line = ansiRegex.ReplaceAllString(line, "")
	line = strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		return r
	}, line)
	return strings.TrimSpace(line)
}

// portState inspects the container until every exposed port has a published
// binding, then snapshots the port map. The retry covers the window right
// after start where the daemon has not reported bindings yet.
func (d *DockerRuntime) portState(ctx context.Context, containerID string, ports []int) (*engineState, error) {
	var portMap nat.PortMap
	backoff := retry.WithMaxRetries(10, retry.NewConstant(100*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		inspect, err := d.client.ContainerInspect(ctx, containerID)
		if err != nil {
			return err
		}
		if inspect.NetworkSettings == nil {
			return retry.RetryableError(fmt.Errorf("container %s has no network settings yet", containerID))
		}
		for _, p := range ports {
			key := nat.Port(fmt.Sprintf("%d/tcp", p))
			if len(inspect.NetworkSettings.Ports[key]) == 0 {
				return retry.RetryableError(fmt.Errorf("container port %d not published yet", p))
			}
		}
		portMap = inspect.NetworkSettings.Ports
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve published ports: %w", err)
	}
	return &engineState{ports: portMap}, nil
}

// removeContainer force-removes a container after a failed start, logging
// instead of failing since the original error is the one worth surfacing.
func (d *DockerRuntime) removeContainer(containerID string) {
	ctx := context.Background()
	if err := d.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		slog.Error("Failed to remove container after start failure", "containerID", containerID, "error", err)
	}
}

// engineState answers host-port queries from a snapshot of the container's
// published port map.
type engineState struct {
	ports nat.PortMap
}

func (s *engineState) HostPort(containerPort int, family runtime.IPFamily) (uint16, error) {
	key := nat.Port(fmt.Sprintf("%d/tcp", containerPort))
	for _, binding := range s.ports[key] {
		if !bindingMatchesFamily(binding.HostIP, family) {
			continue
		}
		port, err := strconv.ParseUint(binding.HostPort, 10, 16)
		if err != nil {
			continue
		}
		return uint16(port), nil
	}
	return 0, fmt.Errorf("container port %d has no %s host binding", containerPort, family)
}

// bindingMatchesFamily reports whether a host binding serves the requested
// address family. An empty host IP binds all interfaces on both families.
func bindingMatchesFamily(hostIP string, family runtime.IPFamily) bool {
	if hostIP == "" {
		return true
	}
	ip := net.ParseIP(hostIP)
	if ip == nil {
		return false
	}
	if family == runtime.IPv4 {
		return ip.To4() != nil
	}
	return ip.To4() == nil
}

// dockerContainer is the handle returned for a started container.
type dockerContainer struct {
	client *client.Client
	id     string
}

func (c *dockerContainer) ID() string {
	return c.id
}

// Terminate force-removes the container and its anonymous volumes.
func (c *dockerContainer) Terminate(ctx context.Context) error {
	err := c.client.ContainerRemove(ctx, c.id, container.RemoveOptions{Force: true, RemoveVolumes: true})
	if err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	return nil
}
