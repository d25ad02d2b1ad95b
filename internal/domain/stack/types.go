package stack

import (
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/domain/readiness"
)

// Role distinguishes background services from the foreground application.
type Role string

const (
	// RoleBackground marks a service that must stay alive while the
	// application runs.
	RoleBackground Role = "background"
	// RoleForeground marks the application whose exit ends the stack.
	RoleForeground Role = "foreground"
)

// Stage names of the default topology.
const (
	StageDisplay = "display"
	StageDesktop = "desktop"
	StageBridge  = "bridge"
	StageApp     = "app"
)

// Descriptor declares one stage of the stack before launch.
type Descriptor struct {
	Name         string            // unique stage name
	Argv         []string          // command and arguments
	Dir          string            // working directory, inherited when empty
	Env          map[string]string // extra environment for this stage
	DependsOn    []string          // stages that must be ready first
	Role         Role              // background or foreground
	UsePTY       bool              // capture output through a pseudo terminal
	Probe        readiness.Probe   // readiness condition
	ReadyTimeout time.Duration     // overrides the stack-wide readiness timeout when set
}

// DisplayHandle identifies the virtual display the stack renders into.
type DisplayHandle struct {
	Identifier string `json:"identifier"` // X display identifier, e.g. ":1"
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Depth      int    `json:"depth"`
}

// Env returns the variables children need to attach to the display.
func (d DisplayHandle) Env() map[string]string {
	return map[string]string{"DISPLAY": d.Identifier}
}

// Topology is the full launch plan: the display the stages share and the
// stages themselves in declaration order.
type Topology struct {
	Display DisplayHandle
	Stages  []Descriptor
}

// Foreground returns the foreground descriptor, or nil when none exists.
func (t *Topology) Foreground() *Descriptor {
	for i := range t.Stages {
		if t.Stages[i].Role == RoleForeground {
			return &t.Stages[i]
		}
	}
	return nil
}

// Stage returns the descriptor with the given name, or nil.
func (t *Topology) Stage(name string) *Descriptor {
	for i := range t.Stages {
		if t.Stages[i].Name == name {
			return &t.Stages[i]
		}
	}
	return nil
}
