package neo4j

import (
	"fmt"
	"maps"
	"net"
	"strconv"
	"sync/atomic"

	"neoharness/pkg/runtime"
)

// Well-known container ports.
const (
	BoltPort = 7687
	HTTPPort = 7474
)

// readinessMarkers must both appear on the container's output, in any order,
// before the engine may consider the instance ready.
var readinessMarkers = [2]string{"Bolt enabled on", "Started."}

// Image is the immutable runtime handle produced by Config.Build. It carries
// the derived container environment and version tag, and answers endpoint
// queries once the container engine has registered its post-start state.
//
// Image implements runtime.RunnableImage.
type Image struct {
	version     string
	user        string
	password    string
	authEnabled bool
	env         map[string]string

	// Written exactly once by RegisterStarted, read many times after.
	state atomic.Pointer[startedState]
}

type startedState struct {
	engine runtime.EngineState
}

// Name returns the logical image name.
func (img *Image) Name() string {
	return imageName
}

// Tag returns the image tag to run. It equals Version.
func (img *Image) Tag() string {
	return img.version
}

// Version returns the resolved version, including the -enterprise suffix for
// enterprise configurations.
func (img *Image) Version() string {
	return img.version
}

// User returns the configured user; ok is false when authentication is
// disabled.
func (img *Image) User() (user string, ok bool) {
	if !img.authEnabled {
		return "", false
	}
	return img.user, true
}

// Password returns the configured password; ok is false when authentication
// is disabled.
func (img *Image) Password() (password string, ok bool) {
	if !img.authEnabled {
		return "", false
	}
	return img.password, true
}

// Env returns a copy of the derived container environment.
func (img *Image) Env() map[string]string {
	return maps.Clone(img.env)
}

// ExposedPorts lists the container ports the engine must publish.
func (img *Image) ExposedPorts() []int {
	return []int{BoltPort, HTTPPort}
}

// ReadinessMarkers returns the pair of literal substrings that must both be
// observed on the container's output before it is ready.
func (img *Image) ReadinessMarkers() [2]string {
	return readinessMarkers
}

// RegisterStarted stores the engine state reported after container start.
// It must be called exactly once; a second call panics.
func (img *Image) RegisterStarted(state runtime.EngineState) {
	if !img.state.CompareAndSwap(nil, &startedState{engine: state}) {
		panic("neo4j: engine state registered twice")
	}
}

// BoltEndpoint returns the bolt:// URI for the requested address family.
// It panics when called before the container engine has registered its
// state; that is a caller bug, not a runtime condition.
func (img *Image) BoltEndpoint(family runtime.IPFamily) (string, error) {
	return img.endpoint("bolt", BoltPort, family)
}

// HTTPEndpoint returns the http:// URI for the requested address family,
// under the same precondition as BoltEndpoint.
func (img *Image) HTTPEndpoint(family runtime.IPFamily) (string, error) {
	return img.endpoint("http", HTTPPort, family)
}

func (img *Image) endpoint(scheme string, containerPort int, family runtime.IPFamily) (string, error) {
	st := img.state.Load()
	if st == nil {
		panic("neo4j: endpoint queried before the container was started")
	}
	port, err := st.engine.HostPort(containerPort, family)
	if err != nil {
		return "", fmt.Errorf("no %s host port for container port %d: %w", family, containerPort, err)
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(family.Loopback(), strconv.Itoa(int(port)))), nil
}
