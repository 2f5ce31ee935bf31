// Command emberd is the server entrypoint: load config, start the
// logger, build the server, run it until a signal arrives, then shut
// down in reverse order.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yourusername/ember/internal/config"
	"github.com/yourusername/ember/pkg/ember/server"
)

func main() {
	configPath := flag.String("config", "./config.json", "path to the JSON configuration document")
	flag.Parse()

	settings, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "emberd: load config: %v\n", err)
		os.Exit(1)
	}

	srv, err := server.New(settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "emberd: start: %v\n", err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		srv.Stop()
	}()

	srv.Run()
}
