package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/axiomesh/axiom-farm/internal/app"
	"github.com/axiomesh/axiom-farm/pkg/loggers"
	"github.com/axiomesh/axiom-farm/pkg/repo"
)

func start(ctx *cli.Context) error {
	p, err := getRootPath(ctx)
	if err != nil {
		return err
	}

	if !fileExist(filepath.Join(p, repo.CfgFileName)) {
		fmt.Println("axiom-farm is not initialized, please execute 'config generate' first")
		return nil
	}

	r, err := repo.Load(p)
	if err != nil {
		return err
	}

	appCtx, cancel := context.WithCancel(ctx.Context)
	if err := loggers.Initialize(r); err != nil {
		cancel()
		return err
	}
	defer cancel()

	log := loggers.Logger(loggers.App)

	var wg sync.WaitGroup
	err = func() error {
		farm, err := app.NewAxiomFarm(r, appCtx, cancel)
		if err != nil {
			return fmt.Errorf("init axiom-farm failed: %w", err)
		}

		wg.Add(1)
		handleShutdown(farm, &wg)

		if err := farm.Start(); err != nil {
			return fmt.Errorf("start axiom-farm failed: %w", err)
		}

		return nil
	}()
	if err != nil {
		log.WithField("err", err).Error("Startup failed")
		return err
	}

	wg.Wait()
	return nil
}

func handleShutdown(farm *app.AxiomFarm, wg *sync.WaitGroup) {
	var stop = make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGTERM)
	signal.Notify(stop, syscall.SIGINT)

	go func() {
		<-stop
		fmt.Println("received interrupt signal, shutting down...")
		if err := farm.Stop(); err != nil {
			panic(err)
		}
		wg.Done()
		os.Exit(0)
	}()
}
