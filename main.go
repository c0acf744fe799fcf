/*
This is an example of application that will use the
engine package to exercise the device translation layer
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/anima-dx12/engine"
	"github.com/spaghettifunk/anima-dx12/engine/core"
	"github.com/spaghettifunk/anima-dx12/testbed"
)

func main() {
	var appConfig engine.ApplicationConfig
	flag.StringVar(&appConfig.ConfigPath, "config", "", "TOML device configuration")
	flag.StringVar(&appConfig.Backend, "backend", "", "override the backend: software or d3d12")
	flag.IntVar(&appConfig.Workers, "workers", 0, "job system workers (0 = one per CPU)")
	flag.Parse()

	tb := testbed.NewTestGame(&appConfig, os.Stdout)

	engine, err := engine.New(tb.Game)
	if err != nil {
		core.LogFatal("%v", err)
	}

	if err := engine.Initialize(); err != nil {
		_ = engine.Shutdown()
		core.LogFatal("%v", err)
	}

	// cancel the run on SIGTERM/SIGINT
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	runErr := engine.Run(ctx)
	if err := engine.Shutdown(); err != nil {
		core.LogError("%v", err)
	}
	if runErr != nil {
		stop()
		core.LogFatal("%v", runErr)
	}
}
