package engine

import (
	"context"

	"github.com/spaghettifunk/anima-dx12/engine/renderer"
	"github.com/spaghettifunk/anima-dx12/engine/systems"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	// Renderer and JobSystem are set by Engine.Initialize before FnInitialize runs.
	Renderer     *renderer.Renderer
	JobSystem    *systems.JobSystem
	State        interface{}
	FnInitialize Initialize
	FnRun        Run
	FnShutdown   Shutdown
}

type Initialize func() error
type Run func(ctx context.Context) error
type Shutdown func() error
