package stack

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/WebDesk/internal/domain/readiness"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/config"
)

// fileTopology is the schema of a custom services file, YAML or TOML by
// extension. It replaces the default topology wholesale.
type fileTopology struct {
	Stages []fileStage `yaml:"stages" toml:"stages"`
}

type fileStage struct {
	Name         string            `yaml:"name" toml:"name"`
	Command      string            `yaml:"command" toml:"command"`
	Argv         []string          `yaml:"argv" toml:"argv"`
	Dir          string            `yaml:"dir" toml:"dir"`
	Env          map[string]string `yaml:"env" toml:"env"`
	DependsOn    []string          `yaml:"depends_on" toml:"depends_on"`
	Foreground   bool              `yaml:"foreground" toml:"foreground"`
	PTY          bool              `yaml:"pty" toml:"pty"`
	Probe        fileProbe         `yaml:"probe" toml:"probe"`
	ReadyTimeout string            `yaml:"ready_timeout" toml:"ready_timeout"`
}

type fileProbe struct {
	Type   string `yaml:"type" toml:"type"`     // tcp, http, display, log, delay, none
	Target string `yaml:"target" toml:"target"` // address, URL, display id, or pattern
	Wait   string `yaml:"wait" toml:"wait"`     // settle time for delay probes
}

// LoadFile reads a custom topology from cfg.Stack.ServicesFile. The display
// handle still comes from configuration so DISPLAY injection keeps working
// for custom stages.
func LoadFile(cfg *config.Config) (*Topology, error) {
	data, err := os.ReadFile(cfg.Stack.ServicesFile)
	if err != nil {
		return nil, fmt.Errorf("read services file: %w", err)
	}

	var ft fileTopology
	switch filepath.Ext(cfg.Stack.ServicesFile) {
	case ".toml":
		err = toml.Unmarshal(data, &ft)
	default:
		err = yaml.Unmarshal(data, &ft)
	}
	if err != nil {
		return nil, fmt.Errorf("parse services file: %w", err)
	}
	if len(ft.Stages) == 0 {
		return nil, fmt.Errorf("services file %s declares no stages", cfg.Stack.ServicesFile)
	}

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

	stages := make([]Descriptor, 0, len(ft.Stages))
	for i, fs := range ft.Stages {
		if fs.Name == "" {
			return nil, fmt.Errorf("stage %d has no name", i)
		}

		argv := fs.Argv
		if len(argv) == 0 {
			argv = strings.Fields(fs.Command)
		}
		if len(argv) == 0 {
			return nil, fmt.Errorf("stage %s has no command", fs.Name)
		}

		probe, err := buildProbe(fs.Probe, cfg)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", fs.Name, err)
		}

		var readyTimeout time.Duration
		if fs.ReadyTimeout != "" {
			readyTimeout, err = time.ParseDuration(fs.ReadyTimeout)
			if err != nil {
				return nil, fmt.Errorf("stage %s ready_timeout: %w", fs.Name, err)
			}
		}

		role := RoleBackground
		if fs.Foreground {
			role = RoleForeground
		}

		stages = append(stages, Descriptor{
			Name:         fs.Name,
			Argv:         argv,
			Dir:          fs.Dir,
			Env:          fs.Env,
			DependsOn:    fs.DependsOn,
			Role:         role,
			UsePTY:       fs.PTY,
			Probe:        probe,
			ReadyTimeout: readyTimeout,
		})
	}

	return &Topology{Display: display, Stages: stages}, nil
}

// buildProbe maps a probe declaration to its implementation. Log probes get
// their output source wired at launch time, once a process handle exists.
func buildProbe(fp fileProbe, cfg *config.Config) (readiness.Probe, error) {
	interval := cfg.Stack.ReadyInterval

	switch fp.Type {
	case "tcp":
		if fp.Target == "" {
			return nil, fmt.Errorf("tcp probe needs a target address")
		}
		return &readiness.TCP{Addr: fp.Target, Interval: interval}, nil

	case "http":
		if fp.Target == "" {
			return nil, fmt.Errorf("http probe needs a target URL")
		}
		return &readiness.HTTP{URL: fp.Target, Interval: interval}, nil

	case "display":
		target := fp.Target
		if target == "" {
			target = cfg.DisplayID()
		}
		return &readiness.Display{Display: target, Interval: interval}, nil

	case "log":
		if fp.Target == "" {
			return nil, fmt.Errorf("log probe needs a pattern")
		}
		pattern, err := regexp.Compile(fp.Target)
		if err != nil {
			return nil, fmt.Errorf("log probe pattern: %w", err)
		}
		return &readiness.Log{Pattern: pattern, Interval: interval}, nil

	case "delay":
		wait := cfg.Stack.SettleDelay
		if fp.Wait != "" {
			parsed, err := time.ParseDuration(fp.Wait)
			if err != nil {
				return nil, fmt.Errorf("delay probe wait: %w", err)
			}
			wait = parsed
		}
		return &readiness.Delay{Wait: wait}, nil

	case "none", "":
		return readiness.None{}, nil

	default:
		return nil, fmt.Errorf("unknown probe type %q", fp.Type)
	}
}
