// Package tika runs Apache Tika in a local Docker container so documents the
// backend cannot read inline can be turned into text.
package tika

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

const (
	DefaultImage = "apache/tika:latest"
	DefaultName  = "timetable-tika"
	DefaultPort  = "9998"

	// Label marks every container this package creates.
	Label = "timetable-tika"

	tikaPort     nat.Port = "9998/tcp"
	readyTimeout          = time.Minute
	stopSeconds           = 10
)

// ErrNoContainer is returned by operations that need an existing container.
var ErrNoContainer = errors.New("tika container does not exist")

// State is the lifecycle state of the Tika container.
type State string

const (
	StateRunning  State = "running"
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateAbsent   State = "absent"
)

// stateOf maps a Docker container state onto State. Unknown states such as
// "paused" are passed through.
func stateOf(docker string) State {
	switch docker {
	case "running":
		return StateRunning
	case "exited", "dead":
		return StateStopped
	case "created", "restarting":
		return StateStarting
	default:
		return State(docker)
	}
}

// Options selects the container to manage. Zero fields take the defaults.
type Options struct {
	Name   string
	Image  string
	Port   string            // host port, bound on 127.0.0.1
	Labels map[string]string // added to Label
}

// Manager starts, stops and inspects one named Tika container.
type Manager struct {
	docker *client.Client
	opts   Options
	labels map[string]string
}

// PortFromURL returns the port of a Tika URL such as http://localhost:9998,
// or DefaultPort when the URL has none.
func PortFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid tika url %q: %w", raw, err)
	}
	if p := u.Port(); p != "" {
		return p, nil
	}
	return DefaultPort, nil
}

// NewManager connects to the Docker daemon named by the environment.
func NewManager(opts Options) (*Manager, error) {
	docker, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.Image == "" {
		opts.Image = DefaultImage
	}
	if opts.Port == "" {
		opts.Port = DefaultPort
	}
	labels := map[string]string{Label: "true"}
	for k, v := range opts.Labels {
		labels[k] = v
	}

	return &Manager{docker: docker, opts: opts, labels: labels}, nil
}

func (m *Manager) Close() error {
	return m.docker.Close()
}

// URL is where the container's Tika server listens on this host.
func (m *Manager) URL() string {
	return "http://" + net.JoinHostPort("localhost", m.opts.Port)
}

// found is the container matched by name.
type found struct {
	id    string
	state State
}

// find locates the container by exact name. Docker's name filter matches
// substrings, so "tika" would also match "timetable-tika".
func (m *Manager) find(ctx context.Context) (found, error) {
	list, err := m.docker.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("name", m.opts.Name)),
	})
	if err != nil {
		return found{}, fmt.Errorf("failed to list containers: %w", err)
	}
	want := "/" + m.opts.Name
	for _, c := range list {
		for _, name := range c.Names {
			if name == want {
				return found{id: c.ID, state: stateOf(c.State)}, nil
			}
		}
	}
	return found{state: StateAbsent}, nil
}

// State reports the container's current state.
func (m *Manager) State(ctx context.Context) (State, error) {
	f, err := m.find(ctx)
	return f.state, err
}

// Start brings the container up and waits until Tika answers. It creates
// the container (pulling the image if needed) when there is none.
func (m *Manager) Start(ctx context.Context) error {
	if _, err := m.docker.Ping(ctx); err != nil {
		return fmt.Errorf("docker is not running: %w", err)
	}
	f, err := m.find(ctx)
	if err != nil {
		return err
	}

	switch f.state {
	case StateRunning:
		return nil
	case StateStarting:
		return m.WaitReady(ctx, readyTimeout)
	case StateStopped:
		if err := m.docker.ContainerStart(ctx, f.id, container.StartOptions{}); err != nil {
			return fmt.Errorf("failed to start container %s: %w", m.opts.Name, err)
		}
		return m.WaitReady(ctx, readyTimeout)
	case StateAbsent:
		if err := m.create(ctx); err != nil {
			return err
		}
		return m.WaitReady(ctx, readyTimeout)
	default:
		return fmt.Errorf("container %s is %s", m.opts.Name, f.state)
	}
}

// Stop stops the container. A missing or stopped container is not an error.
func (m *Manager) Stop(ctx context.Context) error {
	f, err := m.find(ctx)
	if err != nil || f.state == StateAbsent || f.state == StateStopped {
		return err
	}
	timeout := stopSeconds
	if err := m.docker.ContainerStop(ctx, f.id, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop container %s: %w", m.opts.Name, err)
	}
	return nil
}

// Remove deletes the container, stopping it first.
func (m *Manager) Remove(ctx context.Context) error {
	if err := m.Stop(ctx); err != nil {
		return err
	}
	f, err := m.find(ctx)
	if err != nil || f.state == StateAbsent {
		return err
	}
	if err := m.docker.ContainerRemove(ctx, f.id, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("failed to remove container %s: %w", m.opts.Name, err)
	}
	return nil
}

// Logs returns the last tail lines of combined stdout and stderr.
func (m *Manager) Logs(ctx context.Context, tail string) (string, error) {
	f, err := m.find(ctx)
	if err != nil {
		return "", err
	}
	if f.state == StateAbsent {
		return "", fmt.Errorf("%w: %s", ErrNoContainer, m.opts.Name)
	}

	rc, err := m.docker.ContainerLogs(ctx, f.id, container.LogsOptions{ShowStdout: true, ShowStderr: true, Tail: tail})
	if err != nil {
		return "", fmt.Errorf("failed to get logs: %w", err)
	}
	defer rc.Close()

	out, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("failed to read logs: %w", err)
	}
	return string(out), nil
}

// WaitReady polls GET /tika once a second until it returns 200 or timeout
// elapses.
func (m *Manager) WaitReady(ctx context.Context, timeout time.Duration) error {
	hc := &http.Client{Timeout: 2 * time.Second}
	endpoint := m.URL() + "/tika"

	attempts := uint(timeout / time.Second)
	if attempts == 0 {
		attempts = 1
	}
	return retry.Do(
		func() error { return answers(ctx, hc, endpoint) },
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(time.Second),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}

// answers makes one readiness request.
func answers(ctx context.Context, hc *http.Client, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tika answered %d", resp.StatusCode)
	}
	return nil
}

// create pulls the image when missing, then creates and starts the
// container with the Tika port published on loopback only.
func (m *Manager) create(ctx context.Context) error {
	if err := m.pull(ctx); err != nil {
		return err
	}

	cfg := &container.Config{
		Image:        m.opts.Image,
		Labels:       m.labels,
		ExposedPorts: nat.PortSet{tikaPort: struct{}{}},
	}
	host := &container.HostConfig{
		PortBindings: nat.PortMap{tikaPort: {{HostIP: "127.0.0.1", HostPort: m.opts.Port}}},
	}
	created, err := m.docker.ContainerCreate(ctx, cfg, host, nil, nil, m.opts.Name)
	if err != nil {
		return fmt.Errorf("failed to create container %s: %w", m.opts.Name, err)
	}
	if err := m.docker.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		_ = m.docker.ContainerRemove(ctx, created.ID, container.RemoveOptions{Force: true})
		return fmt.Errorf("failed to start container %s: %w", m.opts.Name, err)
	}
	return nil
}

func (m *Manager) pull(ctx context.Context) error {
	if _, err := m.docker.ImageInspect(ctx, m.opts.Image); err == nil {
		return nil
	}
	rc, err := m.docker.ImagePull(ctx, m.opts.Image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull %s: %w", m.opts.Image, err)
	}
	defer rc.Close()
	// The pull finishes only once the progress stream is drained.
	_, err = io.Copy(io.Discard, rc)
	return err
}
