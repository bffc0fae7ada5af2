// Located in pkg/runtime/runtime.go
package runtime

import (
	"context"
	"fmt"
)

// IPFamily selects which loopback address family an endpoint is built for.
type IPFamily int

const (
	IPv4 IPFamily = iota
	IPv6
)

// Loopback returns the loopback host address for the family.
func (f IPFamily) Loopback() string {
	if f == IPv6 {
		return "::1"
	}
	return "127.0.0.1"
}

func (f IPFamily) String() string {
	if f == IPv6 {
		return "ipv6"
	}
	return "ipv4"
}

// EngineState is the opaque post-start state reported by the container
// engine. It answers which host port a container port was published on.
type EngineState interface {
	// HostPort returns the host-mapped port for the given container port
	// on the requested address family.
	HostPort(containerPort int, family IPFamily) (uint16, error)
}

// RunnableImage describes everything the container engine needs to start an
// image and hand its state back: logical name, tag, environment, exposed
// ports, readiness markers, and the post-start callback.
type RunnableImage interface {
	// Name returns the logical image name (e.g. "neo4j").
	Name() string

	// Tag returns the image tag to run.
	Tag() string

	// Env returns the derived container environment.
	Env() map[string]string

	// ExposedPorts lists the container ports that must be published.
	ExposedPorts() []int

	// ReadinessMarkers returns the pair of literal substrings that must both
	// appear on the container's output before it is considered ready.
	ReadinessMarkers() [2]string

	// RegisterStarted is invoked by the engine exactly once after the
	// container is started and its ports are known.
	RegisterStarted(state EngineState)
}

// Container is a handle to a started container.
type Container interface {
	ID() string
	Terminate(ctx context.Context) error
}

// ContainerRuntime defines the contract for container operations.
type ContainerRuntime interface {
	PullImage(ctx context.Context, ref string) error

	// StartContainer starts the image, waits until its readiness markers
	// have been observed, and calls RegisterStarted on the image before
	// returning.
	StartContainer(ctx context.Context, img RunnableImage) (Container, error)
}

// ImageRef builds the full image reference for a runnable image.
func ImageRef(img RunnableImage) string {
	return fmt.Sprintf("%s:%s", img.Name(), img.Tag())
}
