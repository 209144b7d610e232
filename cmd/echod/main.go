// Command echod runs the single-host HTTP echo/static-file server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hatchetline/echod/app"
	"github.com/hatchetline/echod/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "echod: %v (continuing with defaults)\n", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "echod: %v\n", err)
		os.Exit(1)
	}

	if err := a.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "echod: %v\n", err)
		os.Exit(1)
	}
}
