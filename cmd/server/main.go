package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"connprobe/internal/probe"
	"connprobe/internal/shared/config"
	"connprobe/internal/shared/logger"
	"connprobe/internal/shared/types"
)

func main() {
	configDir := flag.String("configdir", "configs", "Path to config directory")
	flag.Parse()

	cfg := types.Default()
	iniPath := filepath.Join(*configDir, "connprobe.ini")
	if err := config.LoadIni(cfg, iniPath); err != nil {
		// Use standard fmt before logger is initialized.
		fmt.Fprintf(os.Stderr, "Fatal: Failed to load config file '%s': %v\n", iniPath, err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	order, err := config.ByteOrder(cfg.Wire)
	if err != nil {
		logger.Fatal().Err(err).Msgf("Invalid wire configuration")
	}

	srv := probe.NewCounterServer(cfg.Server, order)
	if err := srv.Listen(); err != nil {
		logger.Fatal().Err(err).Msgf("Failed to start counter server")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info().Msgf("Signal received, shutting down")
		srv.Close()
	}()

	if err := srv.Serve(); err != nil {
		logger.Fatal().Err(err).Msgf("Counter server terminated")
	}
}
