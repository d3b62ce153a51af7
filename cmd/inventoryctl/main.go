// Command inventoryctl is a line-oriented client for the product API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"inventory/internal/client"
	"inventory/internal/config"
	"inventory/internal/logging"
	"inventory/internal/viewmodel"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logging.New("inventoryctl", cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sh := newShell(os.Stdout)
	sh.vm = viewmodel.New(
		client.New(cfg.APIURL, cfg.RequestTimeout),
		viewmodel.WithDebounce(cfg.SearchDebounce),
		viewmodel.WithFetchTimeout(cfg.RequestTimeout),
		viewmodel.WithOrderedResponses(),
		viewmodel.WithLogger(log),
		viewmodel.OnChange(sh.onChange),
	)
	defer sh.vm.Close()

	log.Debug("connected", zap.String("api_url", cfg.APIURL))
	fmt.Fprintf(os.Stdout, "inventory at %s, type help for commands\n", cfg.APIURL)

	if err := sh.run(ctx, os.Stdin); err != nil {
		log.Error("reading commands", zap.Error(err))
		os.Exit(1)
	}
}
