// Package clienttest provides an in-memory client.Client for tests.
package clienttest

import (
	"context"
	"errors"
	"sync"

	"github.com/fatihusta/holo-cli/pkg/client"
	"github.com/fatihusta/holo-cli/pkg/config"
	"github.com/fatihusta/holo-cli/pkg/schema"
)

// Commit records one commit received by a Fake.
type Commit struct {
	Changes []config.Change
	Comment string
}

// Fake keeps the running configuration in memory and applies commits to
// it. Setting one of the error fields makes the matching call fail.
type Fake struct {
	mu      sync.Mutex
	schema  *schema.Context
	running *config.ConfigTree

	// State maps a path to the JSON returned by GetState.
	State map[string][]byte
	// Outputs maps an operation path to the JSON returned by Execute.
	Outputs map[string][]byte

	Commits    []Commit
	Executed   []string
	CommitErr  error
	GetErr     error
	ExecuteErr error
	Closed     bool
}

// New returns a Fake with an empty running configuration.
func New(ctx *schema.Context) *Fake {
	return &Fake{
		schema:  ctx,
		running: config.New(),
		State:   map[string][]byte{},
		Outputs: map[string][]byte{},
	}
}

// SetRunning replaces the running configuration.
func (f *Fake) SetRunning(t *config.ConfigTree) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = t.Clone()
}

// Running returns a copy of the running configuration.
func (f *Fake) Running() *config.ConfigTree {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running.Clone()
}

func (f *Fake) Capabilities(ctx context.Context) (*client.Capabilities, error) {
	caps := &client.Capabilities{Version: "0.10.0", Encodings: []string{"json_ietf"}}
	for _, m := range f.schema.Modules() {
		caps.Modules = append(caps.Modules, client.Module{Name: m.Name, Revision: m.Revision})
	}
	return caps, nil
}

func (f *Fake) GetRunning(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	return f.running.EncodeJSON()
}

func (f *Fake) GetState(ctx context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	data, ok := f.State[path]
	if !ok {
		return nil, &client.ValidationError{Message: "unknown path " + path}
	}
	return data, nil
}

func (f *Fake) Commit(ctx context.Context, changes []config.Change, comment string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CommitErr != nil {
		return f.CommitErr
	}
	next := f.running.Clone()
	if err := next.Apply(f.schema, changes); err != nil {
		return &client.ValidationError{Message: err.Error(), Err: err}
	}
	f.running = next
	f.Commits = append(f.Commits, Commit{Changes: changes, Comment: comment})
	return nil
}

func (f *Fake) Execute(ctx context.Context, path string, input []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ExecuteErr != nil {
		return nil, f.ExecuteErr
	}
	f.Executed = append(f.Executed, path)
	return f.Outputs[path], nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Closed {
		return errors.New("already closed")
	}
	f.Closed = true
	return nil
}
