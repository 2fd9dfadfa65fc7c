package cli

import (
	"os"
	"testing"
	"time"
)

type fakePrompter struct {
	closed, refreshed int
}

func (p *fakePrompter) Close() error {
	p.closed++
	return nil
}

func (p *fakePrompter) Refresh() { p.refreshed++ }

// runWatcher starts watchInterrupts and returns a channel closed when it
// returns.
func runWatcher(tc *testCLI, sigCh chan os.Signal, done chan struct{}, p *fakePrompter) <-chan struct{} {
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		tc.watchInterrupts(sigCh, done, p)
	}()
	return stopped
}

func waitStopped(t *testing.T, stopped <-chan struct{}) {
	t.Helper()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("interrupt watcher did not return")
	}
}

func TestWatchInterruptsStopsWithSession(t *testing.T) {
	tc := newTestCLI(t)
	p := &fakePrompter{}
	done := make(chan struct{})
	stopped := runWatcher(tc, make(chan os.Signal, 1), done, p)
	close(done)
	waitStopped(t, stopped)
	if p.closed != 0 || p.refreshed != 0 {
		t.Errorf("prompter touched: closed %d, refreshed %d", p.closed, p.refreshed)
	}
}

func TestWatchInterruptsDoubleCtrlC(t *testing.T) {
	tc := newTestCLI(t)
	p := &fakePrompter{}
	sigCh := make(chan os.Signal, 2)
	sigCh <- os.Interrupt
	sigCh <- os.Interrupt
	stopped := runWatcher(tc, sigCh, make(chan struct{}), p)
	waitStopped(t, stopped)
	if p.refreshed != 1 || p.closed != 1 {
		t.Errorf("closed %d, refreshed %d, want 1, 1", p.closed, p.refreshed)
	}
}
