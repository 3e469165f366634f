package shared

import (
	"net"
	"sync/atomic"
)

// CountedConn wraps a net.Conn and atomically accounts uplink and downlink
// bytes. Both sides of the harness report the totals when a connection ends,
// so a run can be cross-checked against the number of samples printed.
type CountedConn struct {
	net.Conn
	uplink   *atomic.Uint64
	downlink *atomic.Uint64
}

// NewCountedConn creates a new CountedConn instance.
func NewCountedConn(conn net.Conn, uplink, downlink *atomic.Uint64) *CountedConn {
	return &CountedConn{
		Conn:     conn,
		uplink:   uplink,
		downlink: downlink,
	}
}

// Read reads from the underlying connection and adds to the downlink count.
func (c *CountedConn) Read(b []byte) (int, error) {
	n, err := c.Conn.Read(b)
	if n > 0 {
		c.downlink.Add(uint64(n))
	}
	return n, err
}

// Write writes to the underlying connection and adds to the uplink count.
func (c *CountedConn) Write(b []byte) (int, error) {
	n, err := c.Conn.Write(b)
	if n > 0 {
		c.uplink.Add(uint64(n))
	}
	return n, err
}
