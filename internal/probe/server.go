package probe

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"connprobe/internal/shared"
	"connprobe/internal/shared/logger"
	"connprobe/internal/shared/types"
)

// CounterServer is the peer the client was built to test against: it writes
// an incrementing fixed-width integer per tick on every accepted connection
// until the write fails. A harness watching the client's output can detect a
// dropped or replayed connection by a gap or reset in the counter sequence.
type CounterServer struct {
	listen   string
	order    binary.ByteOrder
	interval time.Duration
	start    int32
	log      zerolog.Logger

	ln        net.Listener
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	uplink   atomic.Uint64
	downlink atomic.Uint64
}

// NewCounterServer creates a server from config. Samples are encoded in the
// given byte order, which must match the client's.
func NewCounterServer(cfg types.ServerConf, order binary.ByteOrder) *CounterServer {
	interval := time.Duration(cfg.TickMillis) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	return &CounterServer{
		listen:   cfg.Listen,
		order:    order,
		interval: interval,
		start:    int32(cfg.CounterStart),
		log:      logger.WithComponent("server"),
		done:     make(chan struct{}),
	}
}

// Listen binds the listener. Serve must be called afterwards.
func (s *CounterServer) Listen() error {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.listen, err)
	}
	s.ln = ln
	s.log.Info().Str("listen", ln.Addr().String()).Msg("counter server listening")
	return nil
}

// Addr returns the bound listener address. Useful when listening on port 0.
func (s *CounterServer) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts connections until Close is called, one goroutine per
// connection. It returns nil after a clean shutdown.
func (s *CounterServer) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

// Close stops the listener and all in-flight senders, then waits for them.
// Safe to call more than once.
func (s *CounterServer) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if s.ln != nil {
			err = s.ln.Close()
		}
		s.wg.Wait()
	})
	return err
}

func (s *CounterServer) serveConn(raw net.Conn) {
	defer s.wg.Done()

	conn := shared.NewCountedConn(raw, &s.uplink, &s.downlink)
	defer conn.Close()

	log := s.log.With().
		Str("conn_id", uuid.NewString()).
		Str("remote", raw.RemoteAddr().String()).
		Logger()
	log.Info().Msg("connection accepted")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	buf := make([]byte, SampleWidth)
	counter := s.start
	for {
		s.order.PutUint32(buf, uint32(counter))
		if _, err := conn.Write(buf); err != nil {
			log.Info().
				Uint64("tx_bytes", s.uplink.Load()).
				Err(err).
				Msg("peer gone, closing connection")
			return
		}
		log.Debug().Int32("value", counter).Msg("sample sent")
		counter++

		select {
		case <-s.done:
			log.Info().Msg("shutting down, closing connection")
			return
		case <-ticker.C:
		}
	}
}
