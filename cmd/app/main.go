package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"TrendLens/internal/di"
	"TrendLens/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	checkOnly := flag.Bool("check", false, "validate the config and exit")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *checkOnly {
		fmt.Printf("%s: ok (model=%s source=%s cache=%s kafka=%t)\n",
			*configPath, cfg.Model.Backend, cfg.Market.Source, cfg.Cache.Backend, cfg.Kafka.Enabled)
		return
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
