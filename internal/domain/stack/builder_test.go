package stack

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/WebDesk/internal/domain/readiness"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Display: config.DisplayConfig{
			Number:     1,
			Resolution: "1024x768",
			ColorDepth: 24,
			XvfbPath:   "Xvfb",
		},
		Desktop: config.DesktopConfig{
			Port:    5900,
			VNCPath: "x11vnc",
		},
		Bridge: config.BridgeConfig{
			Port:           6080,
			WebsockifyPath: "websockify",
			WebRoot:        "/usr/share/novnc",
		},
		App: config.AppConfig{
			Command: "python3 nexus.py",
		},
		Stack: config.StackConfig{
			ReadyTimeout:  15 * time.Second,
			ReadyInterval: 250 * time.Millisecond,
			GracePeriod:   5 * time.Second,
			SettleDelay:   2 * time.Second,
		},
	}
}

func TestBuildDefaultTopology(t *testing.T) {
	topo, err := Build(testConfig())
	require.NoError(t, err)

	require.Len(t, topo.Stages, 4)
	assert.Equal(t, DisplayHandle{Identifier: ":1", Width: 1024, Height: 768, Depth: 24}, topo.Display)

	display := topo.Stages[0]
	assert.Equal(t, StageDisplay, display.Name)
	assert.Equal(t, []string{"Xvfb", ":1", "-screen", "0", "1024x768x24", "-nolisten", "tcp"}, display.Argv)
	assert.Empty(t, display.DependsOn)
	assert.Equal(t, RoleBackground, display.Role)
	assert.IsType(t, &readiness.Display{}, display.Probe)

	desktop := topo.Stages[1]
	assert.Equal(t, StageDesktop, desktop.Name)
	assert.Equal(t, []string{StageDisplay}, desktop.DependsOn)
	assert.Contains(t, desktop.Argv, "-rfbport")
	assert.Contains(t, desktop.Argv, "5900")
	assert.Contains(t, desktop.Argv, "-listen")
	assert.Contains(t, desktop.Argv, "127.0.0.1")
	assert.IsType(t, &readiness.TCP{}, desktop.Probe)

	bridge := topo.Stages[2]
	assert.Equal(t, StageBridge, bridge.Name)
	assert.Equal(t, []string{StageDesktop}, bridge.DependsOn)
	assert.Equal(t, []string{"websockify", "--web", "/usr/share/novnc", "6080", "127.0.0.1:5900"}, bridge.Argv)
	assert.IsType(t, &readiness.HTTP{}, bridge.Probe)

	app := topo.Stages[3]
	assert.Equal(t, StageApp, app.Name)
	assert.Equal(t, []string{"python3", "nexus.py"}, app.Argv)
	assert.Equal(t, []string{StageDisplay}, app.DependsOn)
	assert.Equal(t, RoleForeground, app.Role)
	assert.Equal(t, ":1", app.Env["DISPLAY"])
	assert.IsType(t, readiness.None{}, app.Probe)
}

func TestBuildRejectsBadResolution(t *testing.T) {
	cfg := testConfig()
	cfg.Display.Resolution = "wide"

	_, err := Build(cfg)
	assert.Error(t, err)
}

func TestDesktopArgvAuth(t *testing.T) {
	tests := []struct {
		name        string
		requireAuth bool
		wantFlag    string
		absentFlag  string
	}{
		{name: "open by default", requireAuth: false, wantFlag: "-nopw", absentFlag: "-rfbauth"},
		{name: "password file when required", requireAuth: true, wantFlag: "-rfbauth", absentFlag: "-nopw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Desktop.RequireAuth = tt.requireAuth
			cfg.Desktop.PasswordFile = "/run/secrets/vncpass"

			argv := desktopArgv(cfg, ":1")
			assert.Contains(t, argv, tt.wantFlag)
			assert.NotContains(t, argv, tt.absentFlag)

			if tt.requireAuth {
				assert.Contains(t, argv, "/run/secrets/vncpass")
			}
		})
	}
}

func TestDisplayHandleEnv(t *testing.T) {
	d := DisplayHandle{Identifier: ":3", Width: 800, Height: 600, Depth: 24}
	assert.Equal(t, map[string]string{"DISPLAY": ":3"}, d.Env())
}

func TestTopologyAccessors(t *testing.T) {
	topo, err := Build(testConfig())
	require.NoError(t, err)

	fg := topo.Foreground()
	require.NotNil(t, fg)
	assert.Equal(t, StageApp, fg.Name)

	assert.NotNil(t, topo.Stage(StageBridge))
	assert.Nil(t, topo.Stage("recorder"))
}
