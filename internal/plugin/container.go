package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
)

// ContainerRuntime is the boundary to an actual container engine
// (docker/podman-equivalent). Container never shells out itself --
// spawning external processes is orchestration scope creep beyond the
// Setup/Teardown contract spec.md §4.7 asks plugins to satisfy.
type ContainerRuntime interface {
	Start(ctx context.Context, image string) (id string, err error)
	Stop(ctx context.Context, id string) error
}

// Container models the built-in container plugin named in spec.md §4.7: it
// starts one container on Setup and stops it on Teardown via an injected
// ContainerRuntime.
type Container struct {
	Image   string
	Runtime ContainerRuntime

	id string
}

// NewContainer wires runtime as the container engine for image. A nil
// runtime falls back to TestcontainersRuntime, the bundled
// testcontainers-go-backed default.
func NewContainer(image string, runtime ContainerRuntime) *Container {
	if runtime == nil {
		runtime = NewTestcontainersRuntime()
	}
	return &Container{Image: image, Runtime: runtime}
}

func (c *Container) Name() string { return "container" }

func (c *Container) Setup(ctx context.Context) error {
	id, err := c.Runtime.Start(ctx, c.Image)
	if err != nil {
		return err
	}
	c.id = id
	return nil
}

func (c *Container) Teardown(ctx context.Context) error {
	if c.id == "" {
		return nil
	}
	return c.Runtime.Stop(ctx, c.id)
}

var _ Plugin = (*Container)(nil)

// TestcontainersRuntime is the bundled ContainerRuntime, backed by
// testcontainers-go's generic container API -- the same library the pack's
// justincranford-cryptoutil repo uses to start real Postgres containers for
// its integration tests (internal/cmd/learn/im_test.go,
// internal/shared/container) -- generalized here from a database-specific
// module helper to an arbitrary-image generic container, since spec.md
// §4.7 names "container runtime" without tying it to a particular image.
// It keeps the live testcontainers.Container per started id so Stop can
// terminate the right one and HostAndMappedPort can resolve its published
// ports, mirroring the teacher's GetContainerHostAndMappedPort helper.
type TestcontainersRuntime struct {
	mu         sync.Mutex
	containers map[string]testcontainers.Container
}

func NewTestcontainersRuntime() *TestcontainersRuntime {
	return &TestcontainersRuntime{containers: make(map[string]testcontainers.Container)}
}

// Start launches image as a generic container and returns its container ID.
func (r *TestcontainersRuntime) Start(ctx context.Context, image string) (string, error) {
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{Image: image},
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("starting container %s: %w", image, err)
	}

	id := c.GetContainerID()

	r.mu.Lock()
	r.containers[id] = c
	r.mu.Unlock()

	return id, nil
}

// Stop terminates the container started under id.
func (r *TestcontainersRuntime) Stop(ctx context.Context, id string) error {
	r.mu.Lock()
	c, ok := r.containers[id]
	if ok {
		delete(r.containers, id)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return c.Terminate(ctx)
}

// HostAndMappedPort resolves the host and the host-mapped port for a
// container port already published by the container started under id,
// following the teacher's GetContainerHostAndMappedPort two-step
// Host/MappedPort lookup (internal/shared/container in
// justincranford-cryptoutil).
func (r *TestcontainersRuntime) HostAndMappedPort(ctx context.Context, id, containerPort string) (host, mappedPort string, err error) {
	r.mu.Lock()
	c, ok := r.containers[id]
	r.mu.Unlock()
	if !ok {
		return "", "", fmt.Errorf("no running container for id %s", id)
	}

	host, err = c.Host(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := c.MappedPort(ctx, nat.Port(containerPort))
	if err != nil {
		return "", "", fmt.Errorf("failed to get container mapped port: %w", err)
	}
	return host, port.Port(), nil
}

var _ ContainerRuntime = (*TestcontainersRuntime)(nil)
