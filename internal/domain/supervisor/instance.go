package supervisor

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/domain/process"
	"github.com/GriffinCanCode/WebDesk/internal/domain/stack"
)

// Instance is the live state of one declared stage.
type Instance struct {
	desc stack.Descriptor

	mu        sync.RWMutex
	state     State
	handle    *process.Handle
	startedAt time.Time
	readyAt   time.Time
}

func newInstance(desc stack.Descriptor) *Instance {
	return &Instance{desc: desc, state: StatePending}
}

// Name returns the stage name.
func (i *Instance) Name() string {
	return i.desc.Name
}

// State returns the current lifecycle state.
func (i *Instance) State() State {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state
}

// Handle returns the process handle, nil before launch.
func (i *Instance) Handle() *process.Handle {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.handle
}

// attach records the process handle once the stage launched.
func (i *Instance) attach(h *process.Handle) {
	i.mu.Lock()
	i.handle = h
	i.startedAt = time.Now()
	i.mu.Unlock()
}

// transition moves the instance to a new state after validating the move.
func (i *Instance) transition(to State) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := checkTransition(i.desc.Name, i.state, to); err != nil {
		return err
	}

	i.state = to
	if to == StateReady {
		i.readyAt = time.Now()
	}
	return nil
}

// StageStatus is the public view of an instance for the status API.
type StageStatus struct {
	Name      string     `json:"name"`
	Role      string     `json:"role"`
	State     string     `json:"state"`
	PID       int        `json:"pid,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	ReadyAt   *time.Time `json:"ready_at,omitempty"`
	ExitCode  *int       `json:"exit_code,omitempty"`
}

// Describe returns the public view of the instance.
func (i *Instance) Describe() StageStatus {
	i.mu.RLock()
	defer i.mu.RUnlock()

	st := StageStatus{
		Name:  i.desc.Name,
		Role:  string(i.desc.Role),
		State: i.state.String(),
	}

	if i.handle != nil {
		st.PID = i.handle.PID()
		started := i.startedAt
		st.StartedAt = &started

		info := i.handle.Describe()
		st.ExitCode = info.ExitCode
	}
	if !i.readyAt.IsZero() {
		ready := i.readyAt
		st.ReadyAt = &ready
	}

	return st
}
