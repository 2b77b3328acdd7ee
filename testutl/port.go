// Package testutl holds helpers for tests that run a real server.
package testutl

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// GetPort returns a free TCP port on the loopback interface.
func GetPort() int {
	for {
		lis, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			slog.Error("failed to find free port", "error", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}
		port := lis.Addr().(*net.TCPAddr).Port
		if err := lis.Close(); err != nil {
			slog.Error(err.Error())
		}
		return port
	}
}

// WaitReady polls url until it answers 200 OK or timeout elapses.
func WaitReady(url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("%s not ready after %s", url, timeout)
}
