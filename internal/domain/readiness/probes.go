package readiness

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// TCP waits until a TCP listener accepts connections on Addr.
type TCP struct {
	Addr     string
	Interval time.Duration
}

// Describe returns a short human-readable identity for log lines.
func (p *TCP) Describe() string {
	return fmt.Sprintf("tcp %s", p.Addr)
}

// Await blocks until Addr accepts a connection or ctx ends.
func (p *TCP) Await(ctx context.Context) error {
	return poll(ctx, p.Interval, func() error {
		conn, err := net.DialTimeout("tcp", p.Addr, time.Second)
		if err != nil {
			return err
		}
		conn.Close()
		return nil
	})
}

// HTTP waits until URL answers any HTTP response. A 404 still proves the
// listener is up, which is all readiness needs.
type HTTP struct {
	URL      string
	Interval time.Duration
}

func (p *HTTP) Describe() string {
	return fmt.Sprintf("http %s", p.URL)
}

// Await issues a GET and lets the retrying client absorb connection
// failures until ctx ends.
func (p *HTTP) Await(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryWaitMin = interval
	client.RetryWaitMax = interval
	client.RetryMax = 1 << 20
	client.HTTPClient.Timeout = 2 * time.Second

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return fmt.Errorf("build readiness request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w (last check: %v)", ctx.Err(), err)
		}
		return fmt.Errorf("http probe %s: %w", p.URL, err)
	}
	resp.Body.Close()
	return nil
}

// Display waits until the X server's unix socket exists and accepts
// connections. Xvfb creates /tmp/.X11-unix/X<n> once it is serving.
type Display struct {
	Display   string // display identifier, e.g. ":1"
	SocketDir string // defaults to /tmp/.X11-unix
	Interval  time.Duration
}

func (p *Display) Describe() string {
	return fmt.Sprintf("display %s", p.Display)
}

// SocketPath returns the unix socket the X server binds for this display.
func (p *Display) SocketPath() string {
	dir := p.SocketDir
	if dir == "" {
		dir = "/tmp/.X11-unix"
	}
	num := strings.TrimPrefix(p.Display, ":")
	return filepath.Join(dir, "X"+num)
}

// Await blocks until the display socket is connectable or ctx ends.
func (p *Display) Await(ctx context.Context) error {
	path := p.SocketPath()
	return poll(ctx, p.Interval, func() error {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("socket %s not present", path)
		}
		conn, err := net.DialTimeout("unix", path, time.Second)
		if err != nil {
			return fmt.Errorf("dial %s: %w", path, err)
		}
		conn.Close()
		return nil
	})
}

// Log waits until the process output matches Pattern. x11vnc announces
// PORT=5900 on stdout once its listener is bound.
type Log struct {
	Pattern  *regexp.Regexp
	Source   func() []byte // recent output of the process under watch
	Interval time.Duration
}

func (p *Log) Describe() string {
	return fmt.Sprintf("log %s", p.Pattern)
}

// Await blocks until the output matches or ctx ends.
func (p *Log) Await(ctx context.Context) error {
	return poll(ctx, p.Interval, func() error {
		if p.Pattern.Match(p.Source()) {
			return nil
		}
		return fmt.Errorf("output does not match %s yet", p.Pattern)
	})
}

// Delay treats a stage as ready after a fixed settle time. Used for
// processes with no observable readiness condition.
type Delay struct {
	Wait time.Duration
}

func (p *Delay) Describe() string {
	return fmt.Sprintf("delay %s", p.Wait)
}

// Await blocks for the settle time or until ctx ends.
func (p *Delay) Await(ctx context.Context) error {
	timer := time.NewTimer(p.Wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// None reports ready as soon as the process is running. Foreground
// applications are supervised, not probed.
type None struct{}

func (None) Describe() string {
	return "immediate"
}

func (None) Await(ctx context.Context) error {
	return nil
}
