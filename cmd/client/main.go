package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"connprobe/internal/probe"
	"connprobe/internal/shared/config"
	"connprobe/internal/shared/logger"
	"connprobe/internal/shared/types"
)

func main() {
	configDir := flag.String("configdir", "configs", "Path to config directory")
	flag.Parse()

	args := flag.Args()
	if len(args) != 2 {
		fmt.Printf("Usage: %s <address> <port>\nExample: %s 127.0.0.1 8080\n", os.Args[0], os.Args[0])
		os.Exit(1)
	}

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

	os.Exit(run(cfg, args[0], args[1]))
}

// run owns the whole connection lifecycle and maps every outcome to the
// process exit status. There is no success path: the probe is expected to
// run until the stream dies or the process is killed, and paired harnesses
// treat any loop exit as abnormal.
func run(cfg *types.Config, address, portStr string) int {
	order, err := config.ByteOrder(cfg.Wire)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid port %q: %v\n", portStr, err)
		return 1
	}

	client := probe.NewClient(order, os.Stdout, os.Stderr)
	conn, err := client.Connect(address, port)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	// ReadLoop prints the failure marker and error detail itself.
	_ = client.ReadLoop(conn)
	return 1
}
