package stack

import (
	"fmt"
	"strconv"

	"github.com/GriffinCanCode/WebDesk/internal/domain/readiness"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/config"
)

// FromConfig assembles the launch plan: the services file when one is
// configured, otherwise the default four-stage topology.
func FromConfig(cfg *config.Config) (*Topology, error) {
	if cfg.Stack.ServicesFile != "" {
		return LoadFile(cfg)
	}
	return Build(cfg)
}

// Build assembles the default topology from configuration: a virtual X
// display, a loopback VNC server attached to it, a WebSocket bridge
// exposing that server, and the foreground application.
func Build(cfg *config.Config) (*Topology, error) {
	width, height, err := config.ParseResolution(cfg.Display.Resolution)
	if err != nil {
		return nil, err
	}

	display := DisplayHandle{
		Identifier: cfg.DisplayID(),
		Width:      width,
		Height:     height,
		Depth:      cfg.Display.ColorDepth,
	}

	desktopAddr := fmt.Sprintf("127.0.0.1:%d", cfg.Desktop.Port)

	stages := []Descriptor{
		{
			Name: StageDisplay,
			Argv: []string{
				cfg.Display.XvfbPath,
				display.Identifier,
				"-screen", "0", fmt.Sprintf("%dx%dx%d", width, height, display.Depth),
				"-nolisten", "tcp",
			},
			Role: RoleBackground,
			Probe: &readiness.Display{
				Display:  display.Identifier,
				Interval: cfg.Stack.ReadyInterval,
			},
		},
		{
			Name:      StageDesktop,
			Argv:      desktopArgv(cfg, display.Identifier),
			DependsOn: []string{StageDisplay},
			Role:      RoleBackground,
			Probe: &readiness.TCP{
				Addr:     desktopAddr,
				Interval: cfg.Stack.ReadyInterval,
			},
		},
		{
			Name: StageBridge,
			Argv: []string{
				cfg.Bridge.WebsockifyPath,
				"--web", cfg.Bridge.WebRoot,
				strconv.Itoa(cfg.Bridge.Port),
				desktopAddr,
			},
			DependsOn: []string{StageDesktop},
			Role:      RoleBackground,
			Probe: &readiness.HTTP{
				URL:      fmt.Sprintf("http://127.0.0.1:%d/", cfg.Bridge.Port),
				Interval: cfg.Stack.ReadyInterval,
			},
		},
		{
			Name:      StageApp,
			Argv:      cfg.AppArgv(),
			Dir:       cfg.App.Dir,
			Env:       display.Env(),
			DependsOn: []string{StageDisplay},
			Role:      RoleForeground,
			UsePTY:    cfg.App.UsePTY,
			Probe:     readiness.None{},
		},
	}

	return &Topology{Display: display, Stages: stages}, nil
}

// desktopArgv builds the x11vnc command line. The server binds loopback
// only; the bridge is the sole public surface.
func desktopArgv(cfg *config.Config, displayID string) []string {
	argv := []string{
		cfg.Desktop.VNCPath,
		"-display", displayID,
		"-rfbport", strconv.Itoa(cfg.Desktop.Port),
		"-listen", "127.0.0.1",
		"-shared",
		"-forever",
	}

	if cfg.Desktop.RequireAuth {
		argv = append(argv, "-rfbauth", cfg.Desktop.PasswordFile)
	} else {
		argv = append(argv, "-nopw")
	}

	return argv
}
