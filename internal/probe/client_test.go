package probe

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
)

// startPeer starts a loopback listener and runs serverLogic on the first
// accepted connection, closing it afterwards.
func startPeer(t *testing.T, serverLogic func(net.Conn)) *net.TCPAddr {
	t.Helper()

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start test peer: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		serverLogic(conn)
		conn.Close()
	}()

	return ln.Addr().(*net.TCPAddr)
}

func encodeSamples(order binary.ByteOrder, values ...int32) []byte {
	buf := make([]byte, 0, len(values)*SampleWidth)
	for _, v := range values {
		var b [SampleWidth]byte
		order.PutUint32(b[:], uint32(v))
		buf = append(buf, b[:]...)
	}
	return buf
}

func TestConnectRejectsBadAddress(t *testing.T) {
	client := NewClient(binary.LittleEndian, io.Discard, io.Discard)

	for _, address := range []string{"", "localhost", "10.0.0", "300.1.2.3", "::1", "1.2.3.4.5"} {
		if _, err := client.Connect(address, 8080); !errors.Is(err, ErrBadAddress) {
			t.Errorf("Connect(%q) error = %v, want ErrBadAddress", address, err)
		}
	}
}

func TestConnectRejectsBadPort(t *testing.T) {
	client := NewClient(binary.LittleEndian, io.Discard, io.Discard)

	for _, port := range []int{0, -1, 65536, 1 << 20} {
		if _, err := client.Connect("127.0.0.1", port); !errors.Is(err, ErrBadPort) {
			t.Errorf("Connect(port=%d) error = %v, want ErrBadPort", port, err)
		}
	}
}

func TestConnectRefused(t *testing.T) {
	// Bind a port and release it again so nothing is listening there.
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	var stdout bytes.Buffer
	client := NewClient(binary.LittleEndian, &stdout, io.Discard)
	if _, err := client.Connect("127.0.0.1", port); !errors.Is(err, ErrConnect) {
		t.Fatalf("Connect to dead port error = %v, want ErrConnect", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("failed connect produced stdout output: %q", stdout.String())
	}
}

func TestReadLoopPrintsSamples(t *testing.T) {
	payload := encodeSamples(binary.LittleEndian, 1, 2, 3)
	addr := startPeer(t, func(conn net.Conn) {
		conn.Write(payload)
	})

	var stdout, stderr bytes.Buffer
	client := NewClient(binary.LittleEndian, &stdout, &stderr)

	conn, err := client.Connect("127.0.0.1", addr.Port)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	err = client.ReadLoop(conn)
	if !errors.Is(err, ErrRead) {
		t.Fatalf("ReadLoop error = %v, want ErrRead", err)
	}
	if !errors.Is(err, io.EOF) {
		t.Errorf("ReadLoop error = %v, want wrapped io.EOF on clean peer close", err)
	}

	want := fmt.Sprintf("Connected to 127.0.0.1:%d ...\n", addr.Port) +
		"Client <- Server: 1\n" +
		"Client <- Server: 2\n" +
		"Client <- Server: 3\n"
	if stdout.String() != want {
		t.Errorf("stdout = %q, want %q", stdout.String(), want)
	}

	errLines := strings.Split(strings.TrimRight(stderr.String(), "\n"), "\n")
	if len(errLines) != 2 {
		t.Fatalf("stderr = %q, want exactly marker and detail lines", stderr.String())
	}
	if errLines[0] != "CLIENT_ERROR: Failed to read from socket." {
		t.Errorf("stderr marker = %q", errLines[0])
	}
}

func TestReadLoopImmediateClose(t *testing.T) {
	addr := startPeer(t, func(net.Conn) {})

	var stdout, stderr bytes.Buffer
	client := NewClient(binary.LittleEndian, &stdout, &stderr)

	conn, err := client.Connect("127.0.0.1", addr.Port)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := client.ReadLoop(conn); !errors.Is(err, ErrRead) {
		t.Fatalf("ReadLoop error = %v, want ErrRead", err)
	}

	if got := strings.Count(stdout.String(), "Client <- Server:"); got != 0 {
		t.Errorf("got %d sample lines, want 0", got)
	}
	if got := strings.Count(stderr.String(), "CLIENT_ERROR:"); got != 1 {
		t.Errorf("got %d error markers, want 1: %q", got, stderr.String())
	}
}

func TestReadLoopShortFinalSample(t *testing.T) {
	// A truncated trailing sample is a read failure, not a sample.
	payload := append(encodeSamples(binary.LittleEndian, 7), 0xAB, 0xCD)
	addr := startPeer(t, func(conn net.Conn) {
		conn.Write(payload)
	})

	var stdout, stderr bytes.Buffer
	client := NewClient(binary.LittleEndian, &stdout, &stderr)

	conn, err := client.Connect("127.0.0.1", addr.Port)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	err = client.ReadLoop(conn)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("ReadLoop error = %v, want wrapped io.ErrUnexpectedEOF", err)
	}

	if got := strings.Count(stdout.String(), "Client <- Server:"); got != 1 {
		t.Errorf("got %d sample lines, want 1", got)
	}
	if !strings.Contains(stdout.String(), "Client <- Server: 7\n") {
		t.Errorf("stdout = %q, missing complete sample", stdout.String())
	}
}

func TestReadLoopBigEndianNegative(t *testing.T) {
	payload := encodeSamples(binary.BigEndian, -7, 42)
	addr := startPeer(t, func(conn net.Conn) {
		conn.Write(payload)
	})

	var stdout bytes.Buffer
	client := NewClient(binary.BigEndian, &stdout, io.Discard)

	conn, err := client.Connect("127.0.0.1", addr.Port)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	client.ReadLoop(conn)

	for _, line := range []string{"Client <- Server: -7\n", "Client <- Server: 42\n"} {
		if !strings.Contains(stdout.String(), line) {
			t.Errorf("stdout = %q, missing %q", stdout.String(), line)
		}
	}
}
