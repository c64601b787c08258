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

type Hooks struct {
	OnStart func()
	OnStop  func()
}

// DrainStep is one named stage of an ordered shutdown. Steps run in sequence
// under the runner's drain timeout; a failing step is logged and does not stop
// the steps after it.
type DrainStep struct {
	Name string
	Run  func() error
}

const EngineVersion = "dev"

func PrintBanner() {
	tpl := "{{ .Title \"HALO\" \"\" 0 }}\nVersion: " + EngineVersion + "\n"
	banner.Init(os.Stdout, true, true, bytes.NewBufferString(tpl))
}
