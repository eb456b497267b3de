package input

import "context"

type Plugin interface {
	Name() string
	// Start consumes in the background. cancel is called when the plugin
	// fails and the process should shut down.
	Start(handler Handler, cancel context.CancelFunc) error
	// Stop should block until shutdown is complete.
	Stop()
}
