// Package plugin defines the global-lifecycle Plugin contract (spec.md
// §4.7) and two bundled plugins: WebServer, a real dev-server stand-in, and
// Container, which starts and stops a container through a ContainerRuntime
// (testcontainers-go by default).
package plugin

import "context"

// Plugin is set up in configured order before the user's globalSetup hook
// and torn down in reverse order after it, per spec.md §4.7.
type Plugin interface {
	Name() string
	Setup(ctx context.Context) error
	Teardown(ctx context.Context) error
}
