package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all supervisor configuration. The binary takes no
// arguments; the environment is the single configuration source.
type Config struct {
	Display   DisplayConfig
	Desktop   DesktopConfig
	Bridge    BridgeConfig
	App       AppConfig
	Stack     StackConfig
	Status    StatusConfig
	RateLimit RateLimitConfig
	Logging   LogConfig
}

// DisplayConfig holds virtual framebuffer configuration.
type DisplayConfig struct {
	Number     int    `envconfig:"DISPLAY_NUMBER" default:"1"`
	Resolution string `envconfig:"DISPLAY_RESOLUTION" default:"1024x768"`
	ColorDepth int    `envconfig:"COLOR_DEPTH" default:"24"`
	XvfbPath   string `envconfig:"XVFB_PATH" default:"Xvfb"`
}

// DesktopConfig holds remote desktop server configuration. The server
// binds to loopback only; it is never part of the public surface.
type DesktopConfig struct {
	Port    int    `envconfig:"DESKTOP_PORT" default:"5900"`
	VNCPath string `envconfig:"X11VNC_PATH" default:"x11vnc"`
	// RequireAuth switches x11vnc from -nopw to password-file mode.
	// Off by default: the endpoint is loopback-only and the bridge is
	// the intended trust boundary.
	RequireAuth  bool   `envconfig:"REQUIRE_AUTH" default:"false"`
	PasswordFile string `envconfig:"VNC_PASSWORD_FILE" default:""`
}

// BridgeConfig holds protocol bridge configuration. The bridge port is
// the stack's only intended public endpoint.
type BridgeConfig struct {
	Port           int    `envconfig:"BRIDGE_PORT" default:"6080"`
	WebsockifyPath string `envconfig:"WEBSOCKIFY_PATH" default:"websockify"`
	WebRoot        string `envconfig:"BRIDGE_WEBROOT" default:"/usr/share/novnc"`
}

// AppConfig holds the foreground application configuration.
type AppConfig struct {
	// Command is the application argv, whitespace-separated. Arguments
	// that themselves contain whitespace need the services file instead.
	// Required unless SERVICES_FILE declares the foreground stage.
	Command string `envconfig:"APP_COMMAND"`
	Dir     string `envconfig:"APP_DIR" default:""`
	// UsePTY runs the application under a pseudo-terminal so its output
	// is line-buffered and flows into the supervisor log promptly.
	UsePTY bool `envconfig:"APP_USE_PTY" default:"false"`
}

// StackConfig holds orchestration timing and the optional services file.
type StackConfig struct {
	ReadyTimeout  time.Duration `envconfig:"READY_TIMEOUT" default:"15s"`
	ReadyInterval time.Duration `envconfig:"READY_INTERVAL" default:"250ms"`
	GracePeriod   time.Duration `envconfig:"GRACE_PERIOD" default:"5s"`
	// SettleDelay is the fixed-delay fallback used only by services that
	// expose no observable readiness signal.
	SettleDelay  time.Duration `envconfig:"SETTLE_DELAY" default:"2s"`
	ServicesFile string        `envconfig:"SERVICES_FILE" default:""`
}

// StatusConfig holds the status server configuration. Loopback by
// default; only the bridge port is meant to face the network.
type StatusConfig struct {
	Enabled bool   `envconfig:"STATUS_ENABLED" default:"true"`
	Host    string `envconfig:"STATUS_HOST" default:"127.0.0.1"`
	Port    string `envconfig:"STATUS_PORT" default:"6081"`
}

// RateLimitConfig holds rate limiting configuration for the status server.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"50"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"100"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the loaded configuration for values no stage could
// start with. Values the service binaries themselves reject (an
// unsupported resolution, a privileged port) surface later as launch
// failures instead.
func (c *Config) Validate() error {
	if _, _, err := ParseResolution(c.Display.Resolution); err != nil {
		return err
	}
	if c.Display.Number < 0 {
		return fmt.Errorf("display number must be non-negative, got %d", c.Display.Number)
	}
	if c.Desktop.Port <= 0 || c.Desktop.Port > 65535 {
		return fmt.Errorf("desktop port out of range: %d", c.Desktop.Port)
	}
	if c.Bridge.Port <= 0 || c.Bridge.Port > 65535 {
		return fmt.Errorf("bridge port out of range: %d", c.Bridge.Port)
	}
	if c.Desktop.Port == c.Bridge.Port {
		return fmt.Errorf("desktop and bridge ports collide on %d", c.Desktop.Port)
	}
	if c.Desktop.RequireAuth && c.Desktop.PasswordFile == "" {
		return fmt.Errorf("REQUIRE_AUTH is set but VNC_PASSWORD_FILE is empty")
	}
	if c.Stack.ServicesFile == "" && strings.TrimSpace(c.App.Command) == "" {
		return fmt.Errorf("APP_COMMAND must not be empty")
	}
	return nil
}

// DisplayID returns the X display identifier, e.g. ":1".
func (c *Config) DisplayID() string {
	return fmt.Sprintf(":%d", c.Display.Number)
}

// AppArgv returns the application command split into argv.
func (c *Config) AppArgv() []string {
	return strings.Fields(c.App.Command)
}

// ParseResolution parses a WxH resolution string such as "1024x768".
func ParseResolution(s string) (width, height int, err error) {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(s)), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("resolution %q is not in WxH form", s)
	}
	width, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("resolution %q has invalid width: %w", s, err)
	}
	height, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("resolution %q has invalid height: %w", s, err)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("resolution %q must be positive", s)
	}
	return width, height, nil
}
