package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"forgewatch/internal/app"
	"forgewatch/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml/json")
	flag.Parse()

	// Optional .env for local runs; real deployments set the environment.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Console-only until the configured logger takes over inside app.New.
	boot := logx.NewConsole("info")

	a, err := app.New(cfgPath)
	if err != nil {
		boot.Error("startup failed", logx.Err(err))
		os.Exit(1)
	}

	if err := a.Run(ctx); err != nil {
		boot.Error("exited with error", logx.Err(err))
		os.Exit(1)
	}
}
