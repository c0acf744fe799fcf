package engine

import (
	"context"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/anima-dx12/engine/core"
	"github.com/spaghettifunk/anima-dx12/engine/renderer"
	"github.com/spaghettifunk/anima-dx12/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released everything it owned
	EngineStageShutDown
)

var ErrWrongStage = errors.New("engine is in the wrong stage")

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *core.Config
	renderer     *renderer.Renderer
	jobSystem    *systems.JobSystem
	clock        *core.Clock
}

// New loads the device configuration for g. Nothing is created until
// Initialize.
func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, errors.New("game has no application config")
	}
	cfg := core.DefaultConfig()
	if path := g.ApplicationConfig.ConfigPath; path != "" {
		var err error
		if cfg, err = core.LoadConfig(path); err != nil {
			core.LogError("%v", err)
			return nil, err
		}
	}
	if b := g.ApplicationConfig.Backend; b != "" {
		cfg.Device.Backend = b
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return &Engine{
		currentStage: EngineStageBootComplete,
		gameInstance: g,
		config:       cfg,
		clock:        core.NewClock(),
	}, nil
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Config() *core.Config {
	return e.config
}

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageBootComplete {
		return errors.Wrapf(ErrWrongStage, "initialize in stage %d", e.currentStage)
	}
	e.currentStage = EngineStageInitializing

	r, err := renderer.New(e.config)
	if err != nil {
		return err
	}
	e.renderer = r

	workers := e.gameInstance.ApplicationConfig.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	js, err := systems.NewJobSystem(workers, workers*4)
	if err != nil {
		_ = r.Shutdown()
		return err
	}
	e.jobSystem = js

	e.gameInstance.Renderer = r
	e.gameInstance.JobSystem = js
	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			core.LogError("game failed to initialize: %v", err)
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("%s initialized", e.gameInstance.ApplicationConfig.Name)
	return nil
}

func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return errors.Wrapf(ErrWrongStage, "run in stage %d", e.currentStage)
	}
	e.currentStage = EngineStageRunning

	e.clock.Start()
	var err error
	if e.gameInstance.FnRun != nil {
		err = e.gameInstance.FnRun(ctx)
	}
	e.clock.Update()
	e.clock.Stop()

	if err != nil {
		core.LogError("%s stopped after %s: %v", e.gameInstance.ApplicationConfig.Name, e.clock.Elapsed(), err)
		return err
	}
	core.LogInfo("%s finished in %s", e.gameInstance.ApplicationConfig.Name, e.clock.Elapsed())
	return nil
}

// Shutdown releases the game, the job system and the device, in that order.
// It is safe to call from any stage and more than once.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutDown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown

	var errs error
	if e.gameInstance.FnShutdown != nil && e.renderer != nil {
		errs = errors.CombineErrors(errs, e.gameInstance.FnShutdown())
	}
	if e.jobSystem != nil {
		errs = errors.CombineErrors(errs, e.jobSystem.Shutdown())
		e.jobSystem = nil
	}
	if e.renderer != nil {
		errs = errors.CombineErrors(errs, e.renderer.Shutdown())
		e.renderer = nil
	}
	e.currentStage = EngineStageShutDown
	return errs
}
