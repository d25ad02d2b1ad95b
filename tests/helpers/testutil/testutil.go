// Package testutil provides testing utilities and helpers for stack tests.
package testutil

import (
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// FreePort reserves an ephemeral TCP port and returns it. The listener is
// closed before returning, so a later bind can still lose the race; that
// is acceptable for tests.
func FreePort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to reserve port: %v", err)
	}
	defer ln.Close()

	return ln.Addr().(*net.TCPAddr).Port
}

// WriteServicesFile writes a services file into a fresh temp dir and
// returns its path. The extension of name selects the format.
func WriteServicesFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write services file: %v", err)
	}

	return path
}

// WaitForHTTP polls url until it answers with status 200 or the deadline
// passes.
func WaitForHTTP(t *testing.T, url string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatalf("%s did not answer within %s", url, timeout)
}
