// Package harness orchestrates the full path from a Neo4j configuration to a
// running, ready test container on the local Docker daemon.
package harness

import (
	"context"
	"fmt"
	"log/slog"

	dockerruntime "neoharness/internal/runtime"
	"neoharness/pkg/neo4j"
	"neoharness/pkg/runtime"
)

// Instance is a running Neo4j test container.
type Instance struct {
	image     *neo4j.Image
	container runtime.Container
}

// Image returns the runtime handle for endpoint and credential queries.
func (i *Instance) Image() *neo4j.Image {
	return i.image
}

// ID returns the engine's container identifier.
func (i *Instance) ID() string {
	return i.container.ID()
}

// Terminate removes the container. The Instance must not be used afterwards.
func (i *Instance) Terminate(ctx context.Context) error {
	return i.container.Terminate(ctx)
}

// Start finalizes the configuration and runs it on the local Docker daemon,
// returning once the instance is ready to accept connections.
func Start(ctx context.Context, cfg neo4j.Config) (*Instance, error) {
	img, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build image configuration: %w", err)
	}

	rt, err := dockerruntime.NewDockerRuntime()
	if err != nil {
		return nil, err
	}

	return StartWith(ctx, rt, img)
}

// StartWith runs an already-built image on the given container runtime.
func StartWith(ctx context.Context, rt runtime.ContainerRuntime, img *neo4j.Image) (*Instance, error) {
	ref := runtime.ImageRef(img)
	slog.Info("Starting Neo4j test container", "image", ref)

	if err := rt.PullImage(ctx, ref); err != nil {
		return nil, fmt.Errorf("failed to pull image: %w", err)
	}

	ctr, err := rt.StartContainer(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	slog.Info("Neo4j test container ready", "containerID", ctr.ID())
	return &Instance{image: img, container: ctr}, nil
}
