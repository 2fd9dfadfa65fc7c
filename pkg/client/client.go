// Package client defines the narrow interface the CLI uses to talk to the
// network daemon. The gnmiclient subpackage implements it over gNMI.
package client

import (
	"context"
	"fmt"

	"github.com/fatihusta/holo-cli/pkg/config"
)

// Module is a YANG module advertised by the daemon.
type Module struct {
	Name         string
	Organization string
	Revision     string
}

// Capabilities describes what the daemon supports.
type Capabilities struct {
	Version   string
	Modules   []Module
	Encodings []string
}

// Client is a connection to the daemon.
type Client interface {
	// Capabilities returns the modules and encodings the daemon supports.
	Capabilities(ctx context.Context) (*Capabilities, error)

	// GetRunning returns the running configuration as JSON_IETF.
	GetRunning(ctx context.Context) ([]byte, error)

	// GetState returns operational state at path as JSON_IETF.
	GetState(ctx context.Context, path string) ([]byte, error)

	// Commit applies all changes atomically. Either every change is
	// applied or none is.
	Commit(ctx context.Context, changes []config.Change, comment string) error

	// Execute invokes the operation at path with JSON_IETF input and
	// returns its JSON_IETF output.
	Execute(ctx context.Context, path string, input []byte) ([]byte, error)

	Close() error
}

// ConnectionError reports that the daemon could not be reached.
type ConnectionError struct {
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ValidationError reports that the daemon rejected a request. Message is
// the daemon's own text.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Err }
