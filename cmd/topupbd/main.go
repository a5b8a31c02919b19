package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/and161185/topupbd/internal/config"
	"github.com/and161185/topupbd/internal/deps"
	"github.com/and161185/topupbd/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.NewConfig()

	d, err := deps.NewDependencies(ctx, cfg)
	if err != nil {
		cfg.Logger.Fatal(err)
	}
	defer d.Close()

	srv := server.NewServer(d, cfg)
	if err := srv.Run(ctx); err != nil {
		cfg.Logger.Fatal(err)
	}
}
