package readiness

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shortCtx(t *testing.T, d time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)
	return ctx
}

func TestTCPAwaitSucceedsOnListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	probe := &TCP{Addr: ln.Addr().String(), Interval: 20 * time.Millisecond}
	assert.NoError(t, probe.Await(shortCtx(t, 2*time.Second)))
}

func TestTCPAwaitTimesOutWithoutListener(t *testing.T) {
	// Reserve a port and close it so nothing is listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	probe := &TCP{Addr: addr, Interval: 20 * time.Millisecond}
	err = probe.Await(shortCtx(t, 200*time.Millisecond))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTCPAwaitSeesLateListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	var relisten net.Listener
	var mu sync.Mutex
	go func() {
		time.Sleep(150 * time.Millisecond)
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return
		}
		mu.Lock()
		relisten = l
		mu.Unlock()
	}()
	defer func() {
		mu.Lock()
		if relisten != nil {
			relisten.Close()
		}
		mu.Unlock()
	}()

	probe := &TCP{Addr: addr, Interval: 20 * time.Millisecond}
	assert.NoError(t, probe.Await(shortCtx(t, 3*time.Second)))
}

func TestHTTPAwaitAcceptsAnyResponse(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "ok", status: http.StatusOK},
		{name: "not found still proves listener", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			probe := &HTTP{URL: srv.URL, Interval: 20 * time.Millisecond}
			assert.NoError(t, probe.Await(shortCtx(t, 2*time.Second)))
		})
	}
}

func TestHTTPAwaitTimesOutWithoutServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	probe := &HTTP{URL: url, Interval: 20 * time.Millisecond}
	err := probe.Await(shortCtx(t, 300*time.Millisecond))
	assert.Error(t, err)
}

func TestDisplayAwait(t *testing.T) {
	dir := t.TempDir()

	probe := &Display{Display: ":1", SocketDir: dir, Interval: 20 * time.Millisecond}
	assert.Equal(t, filepath.Join(dir, "X1"), probe.SocketPath())

	// Nothing bound yet
	err := probe.Await(shortCtx(t, 200*time.Millisecond))
	require.Error(t, err)

	ln, err := net.Listen("unix", probe.SocketPath())
	require.NoError(t, err)
	defer ln.Close()

	assert.NoError(t, probe.Await(shortCtx(t, 2*time.Second)))
}

func TestDisplayDefaultSocketDir(t *testing.T) {
	probe := &Display{Display: ":7"}
	assert.Equal(t, "/tmp/.X11-unix/X7", probe.SocketPath())
}

func TestLogAwait(t *testing.T) {
	var mu sync.Mutex
	output := []byte("starting up\n")

	probe := &Log{
		Pattern:  regexp.MustCompile(`PORT=\d+`),
		Interval: 20 * time.Millisecond,
		Source: func() []byte {
			mu.Lock()
			defer mu.Unlock()
			return output
		},
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		mu.Lock()
		output = append(output, []byte("PORT=5900\n")...)
		mu.Unlock()
	}()

	assert.NoError(t, probe.Await(shortCtx(t, 2*time.Second)))
}

func TestLogAwaitTimesOutWithoutMatch(t *testing.T) {
	probe := &Log{
		Pattern:  regexp.MustCompile(`PORT=\d+`),
		Interval: 20 * time.Millisecond,
		Source:   func() []byte { return []byte("nothing useful") },
	}

	err := probe.Await(shortCtx(t, 200*time.Millisecond))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestDelayAwait(t *testing.T) {
	probe := &Delay{Wait: 50 * time.Millisecond}

	start := time.Now()
	require.NoError(t, probe.Await(shortCtx(t, time.Second)))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestDelayAwaitCancels(t *testing.T) {
	probe := &Delay{Wait: 10 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := probe.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNoneAwait(t *testing.T) {
	probe := None{}
	assert.NoError(t, probe.Await(context.Background()))
	assert.Equal(t, "immediate", probe.Describe())
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		probe Probe
		want  string
	}{
		{&TCP{Addr: "127.0.0.1:5900"}, "tcp 127.0.0.1:5900"},
		{&HTTP{URL: "http://127.0.0.1:6080/"}, "http http://127.0.0.1:6080/"},
		{&Display{Display: ":1"}, "display :1"},
		{&Delay{Wait: 2 * time.Second}, "delay 2s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.probe.Describe())
		})
	}
}

func TestPollReportsLastCheckError(t *testing.T) {
	err := poll(shortCtx(t, 150*time.Millisecond), 20*time.Millisecond, func() error {
		return fmt.Errorf("port 5900 refused")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port 5900 refused")
}
