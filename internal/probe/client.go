package probe

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync/atomic"

	"github.com/rs/zerolog"

	"connprobe/internal/shared"
	"connprobe/internal/shared/logger"
)

// SampleWidth is the size in bytes of one wire sample. The peer protocol is
// a bare stream of 4-byte signed integers with no framing or length prefix.
const SampleWidth = 4

// readFailureMarker is the fixed string paired harnesses grep the client's
// stderr for. Do not change it without changing those harnesses.
const readFailureMarker = "CLIENT_ERROR: Failed to read from socket."

// Client is the connector-reader side of the harness: it opens exactly one
// outbound TCP connection and prints counter samples from it until the
// stream dies. There is no retry, no timeout and no cancellation; a silent
// peer blocks the read loop indefinitely.
type Client struct {
	order  binary.ByteOrder
	stdout io.Writer
	stderr io.Writer
	log    zerolog.Logger

	uplink   atomic.Uint64
	downlink atomic.Uint64
}

// NewClient creates a client decoding samples in the given byte order.
// Contract output (connection line, sample lines, failure marker) goes to
// stdout/stderr as passed here; diagnostic logging goes through zerolog.
func NewClient(order binary.ByteOrder, stdout, stderr io.Writer) *Client {
	return &Client{
		order:  order,
		stdout: stdout,
		stderr: stderr,
		log:    logger.WithComponent("client"),
	}
}

// Connect resolves address as an IPv4 literal and opens the one TCP
// connection of this run. On success it prints the connection line before
// any sample can be printed.
func (c *Client) Connect(address string, port int) (net.Conn, error) {
	ip := net.ParseIP(address)
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("%w: %q", ErrBadAddress, address)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("%w: %d", ErrBadPort, port)
	}

	conn, err := net.DialTCP("tcp4", nil, &net.TCPAddr{IP: ip.To4(), Port: port})
	if err != nil {
		return nil, fmt.Errorf("%w: %s:%d: %w", ErrConnect, address, port, err)
	}

	fmt.Fprintf(c.stdout, "Connected to %s:%d ...\n", address, port)
	c.log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("connection established")

	return shared.NewCountedConn(conn, &c.uplink, &c.downlink), nil
}

// ReadLoop reads full-width samples from conn until a read fails or the
// peer closes, printing each one. It closes the connection on exit and
// always returns a non-nil error: the probe is expected to outlive the run,
// so any loop exit is abnormal, a clean peer close included.
func (c *Client) ReadLoop(conn net.Conn) error {
	defer conn.Close()

	buf := make([]byte, SampleWidth)
	samples := uint64(0)
	for {
		if _, err := io.ReadFull(conn, buf); err != nil {
			fmt.Fprintf(c.stderr, "%s\n", readFailureMarker)
			fmt.Fprintf(c.stderr, "read: %v\n", err)
			c.log.Info().
				Uint64("samples", samples).
				Uint64("rx_bytes", c.downlink.Load()).
				Err(err).
				Msg("stream ended")
			return fmt.Errorf("%w: %w", ErrRead, err)
		}
		value := int32(c.order.Uint32(buf))
		samples++
		fmt.Fprintf(c.stdout, "Client <- Server: %d\n", value)
	}
}
