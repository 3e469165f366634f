package types

// WireConf describes the on-wire sample encoding shared by client and server.
// The stream is a bare sequence of 4-byte signed integers with no framing;
// byte_order selects how each one is encoded.
type WireConf struct {
	ByteOrder string `ini:"byte_order"` // "little" (default) or "big"
}

// ServerConf contains counter-server specific configuration.
type ServerConf struct {
	Listen       string `ini:"listen"`
	TickMillis   int    `ini:"tick_ms"`       // delay between samples on one connection
	CounterStart int    `ini:"counter_start"` // first value sent on each connection
}

// LogConf contains logging specific configuration.
type LogConf struct {
	Level string `ini:"level"`
}

// Config is the unified configuration structure for both binaries.
type Config struct {
	Log    LogConf    `ini:"log"`
	Wire   WireConf   `ini:"wire"`
	Server ServerConf `ini:"server"`
}

// Default returns the configuration used when no ini file is present.
// The harness must be runnable bare, with nothing but an address and a port.
func Default() *Config {
	return &Config{
		Log:  LogConf{Level: "info"},
		Wire: WireConf{ByteOrder: "little"},
		Server: ServerConf{
			Listen:       "0.0.0.0:8080",
			TickMillis:   1000,
			CounterStart: 1,
		},
	}
}
