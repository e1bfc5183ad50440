package main

import (
	"flag"
	"log"

	"github.com/sajera/apikit/internal/app"
)

func main() {
	configPath := flag.String("config", "", "path to a yaml config file (optional)")
	flag.Parse()

	cfg := app.MustLoad(*configPath)

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
