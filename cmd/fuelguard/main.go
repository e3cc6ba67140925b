package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/fuelguard-dz/fuelguard/internal/app"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file")
	migrateOnly := flag.Bool("migrate", false, "run database migrations and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("fuelguard", version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *migrateOnly {
		if err := app.Migrate(ctx, *configPath); err != nil {
			log.Errorf("migrate: %v", err)
			os.Exit(1)
		}
		return
	}

	if err := app.RunServer(ctx, *configPath); err != nil {
		log.Errorf("server: %v", err)
		os.Exit(1)
	}
}
