// Package runner owns process lifecycle: banner, start and stop hooks, and a
// drain phase that gives the session a bounded window to flush before exit.
package runner

import (
	"bytes"
	"context"
	"os"

	"github.com/dimiro1/banner"
)

type State int

const (
	StateNew State = iota
	StateStarting
	StateRunning
	StateDraining
	StateStopped
)

type Runner interface {
	Run(ctx context.Context) error
	Stop() error
	State() State
}

// Hooks fire around the running phase. OnStart runs before the runner blocks;
// OnStop runs after the drain completes, so artifact writers close against a
// fully flushed event stream.
type Hooks struct {
	OnStart func()
	OnStop  func()
}

// Drainer releases in-flight work at shutdown: the engine wires it to close
// the session before dropping the live connection.
type Drainer interface {
	Drain() error
}

// DrainerFunc adapts a plain function to the Drainer interface.
type DrainerFunc func() error

func (f DrainerFunc) Drain() error { return f() }

const EngineVersion = "dev"

func PrintBanner() {
	tpl := "{{ .Title \"LIVIA\" \"\" 0 }}\nVersion: " + EngineVersion + "\n"
	banner.Init(os.Stdout, true, true, bytes.NewBufferString(tpl))
}
