package mcp

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServer_Run_InvalidTransport(t *testing.T) {
	server := newTestServer(t, t.TempDir())

	err := server.Run(context.Background(), "carrier-pigeon")
	if err == nil {
		t.Fatal("expected error for unknown transport")
	}
	if !strings.Contains(err.Error(), "unknown transport") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestServer_Run_SSEMode(t *testing.T) {
	server := newTestServer(t, t.TempDir())
	server.config.Host = "127.0.0.1"
	server.config.Port = freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Run(ctx, TransportSSE)
	}()

	addr := fmt.Sprintf("127.0.0.1:%d", server.config.Port)
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			conn.Close()
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("sse server never listened on %s: %v", addr, err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() returned error after shutdown: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("server did not stop within expected time")
	}
}

func TestServer_Run_SSEPortInUse(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer l.Close()

	server := newTestServer(t, t.TempDir())
	server.config.Host = "127.0.0.1"
	server.config.Port = l.Addr().(*net.TCPAddr).Port

	err = server.Run(context.Background(), TransportSSE)
	if err == nil {
		t.Fatal("expected error when the port is taken")
	}
	if !strings.Contains(err.Error(), "failed to serve sse") {
		t.Errorf("unexpected error: %v", err)
	}
}
