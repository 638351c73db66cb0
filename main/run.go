package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nnsW3/signup-sequencer/app"
	"github.com/nnsW3/signup-sequencer/ledger"
	metricsprom "github.com/nnsW3/signup-sequencer/metrics/prometheus"
	"github.com/nnsW3/signup-sequencer/server"
)

const shutdownTimeout = 10 * time.Second

func run(configFile string) error {
	conf, err := app.LoadConfig(configFile)
	if err != nil {
		return err
	}
	logger, err := app.NewLogger(&conf.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	signer, semaphore, err := ledger.InitializeSemaphore(ctx, &conf.Ethereum)
	if err != nil {
		return err
	}
	logger.Info("semaphore bound",
		"contract", semaphore.Address().Hex(),
		"signer", signer.From.Hex(),
	)

	store, err := app.OpenStore(&conf.Storage)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	seq, err := app.New(ctx, conf, semaphore, store, logger, app.WithMetrics(metricsprom.NewCollector(reg)))
	if err != nil {
		store.Close()
		return err
	}
	defer seq.Close()

	srv := server.New(conf.Address, seq, reg, logger)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
