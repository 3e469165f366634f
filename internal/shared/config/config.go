package config

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"

	"connprobe/internal/shared/types"
)

// LoadIni loads the behavior configuration file on top of the defaults
// already present in cfg. A missing file is not an error: the harness runs
// with defaults when invoked with nothing but an address and a port.
func LoadIni(cfg *types.Config, fileName string) error {
	iniFile, err := ini.Load(fileName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			overrideFromEnv(&cfg.Server.Listen, "CONNPROBE_LISTEN")
			return nil
		}
		return err
	}
	if err := iniFile.MapTo(cfg); err != nil {
		return err
	}
	overrideFromEnv(&cfg.Server.Listen, "CONNPROBE_LISTEN")
	return nil
}

// ByteOrder resolves the configured wire byte order.
func ByteOrder(wire types.WireConf) (binary.ByteOrder, error) {
	switch strings.ToLower(wire.ByteOrder) {
	case "", "little":
		return binary.LittleEndian, nil
	case "big":
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("unknown byte_order %q (want \"little\" or \"big\")", wire.ByteOrder)
	}
}

func overrideFromEnv(target *string, envName string) {
	if envValue := os.Getenv(envName); envValue != "" {
		*target = envValue
	}
}
