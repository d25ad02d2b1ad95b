package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/WebDesk/internal/domain/process"
	"github.com/GriffinCanCode/WebDesk/internal/domain/readiness"
	"github.com/GriffinCanCode/WebDesk/internal/domain/stack"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/logging"
)

// Recorder receives stage metrics. Satisfied by monitoring.Metrics.
type Recorder interface {
	RecordTransition(stage, state string)
	RecordReady(stage string, elapsed time.Duration)
	RecordFailure(stage, class string)
	SetProcessesRunning(count int)
	SetStackReady(ready bool)
}

// Options configures a Supervisor.
type Options struct {
	Logger       *logging.Logger
	Metrics      Recorder // optional
	Bus          *Bus     // optional, created when nil
	ReadyTimeout time.Duration
	GracePeriod  time.Duration
}

// Supervisor owns the stack from launch to teardown.
type Supervisor struct {
	topo    *stack.Topology
	log     *logging.Logger
	metrics Recorder
	bus     *Bus

	readyTimeout time.Duration
	grace        time.Duration

	instances map[string]*Instance
	order     []string // declaration order

	mu      sync.Mutex
	started []*Instance // actual launch order, for reverse teardown

	shutdownOnce sync.Once
	shutdownDone chan struct{}
}

// New validates the topology and prepares one instance per stage.
func New(topo *stack.Topology, opts Options) (*Supervisor, error) {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Bus == nil {
		opts.Bus = NewBus()
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 15 * time.Second
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = 5 * time.Second
	}

	if err := validate(topo); err != nil {
		return nil, err
	}

	s := &Supervisor{
		topo:         topo,
		log:          opts.Logger,
		metrics:      opts.Metrics,
		bus:          opts.Bus,
		readyTimeout: opts.ReadyTimeout,
		grace:        opts.GracePeriod,
		instances:    make(map[string]*Instance, len(topo.Stages)),
		shutdownDone: make(chan struct{}),
	}
	for _, desc := range topo.Stages {
		s.instances[desc.Name] = newInstance(desc)
		s.order = append(s.order, desc.Name)
	}
	return s, nil
}

// validate rejects topologies the launcher cannot order.
func validate(topo *stack.Topology) error {
	if len(topo.Stages) == 0 {
		return errors.New("topology has no stages")
	}

	seen := make(map[string]bool, len(topo.Stages))
	foreground := 0
	for _, desc := range topo.Stages {
		if desc.Name == "" {
			return errors.New("every stage needs a name")
		}
		if seen[desc.Name] {
			return fmt.Errorf("duplicate stage name %s", desc.Name)
		}
		seen[desc.Name] = true

		if len(desc.Argv) == 0 {
			return fmt.Errorf("stage %s has no command", desc.Name)
		}
		if desc.Role == stack.RoleForeground {
			foreground++
		}
	}
	if foreground != 1 {
		return fmt.Errorf("topology needs exactly one foreground stage, found %d", foreground)
	}

	fg := topo.Foreground()
	for _, desc := range topo.Stages {
		for _, dep := range desc.DependsOn {
			if !seen[dep] {
				return fmt.Errorf("stage %s depends on unknown stage %s", desc.Name, dep)
			}
			if dep == desc.Name {
				return fmt.Errorf("stage %s depends on itself", desc.Name)
			}
			if dep == fg.Name {
				return fmt.Errorf("stage %s cannot depend on the foreground stage", desc.Name)
			}
		}
	}

	return checkAcyclic(topo)
}

// checkAcyclic rejects dependency cycles with a depth-first walk.
func checkAcyclic(topo *stack.Topology) error {
	const (
		unvisited = iota
		visiting
		done
	)
	marks := make(map[string]int, len(topo.Stages))

	var visit func(name string) error
	visit = func(name string) error {
		switch marks[name] {
		case visiting:
			return fmt.Errorf("dependency cycle through stage %s", name)
		case done:
			return nil
		}
		marks[name] = visiting
		if desc := topo.Stage(name); desc != nil {
			for _, dep := range desc.DependsOn {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		marks[name] = done
		return nil
	}

	for _, desc := range topo.Stages {
		if err := visit(desc.Name); err != nil {
			return err
		}
	}
	return nil
}

// Run drives the full lifecycle: launch, supervise, tear down. The outcome
// carries the exit code for main.
func (s *Supervisor) Run(ctx context.Context) Outcome {
	failure := s.Launch(ctx)
	if failure == nil {
		failure = s.Supervise(ctx)
	}
	s.Shutdown()

	if failure != nil {
		s.log.Error("stack failed",
			zap.String("class", string(failure.Class)),
			zap.String("stage", failure.Stage),
			zap.Error(failure.Err))
	}
	return Outcome{Failure: failure}
}

// Launch starts every background stage as its dependencies become ready,
// then starts the foreground application once all of them are ready. The
// first failure cancels the remaining launches.
func (s *Supervisor) Launch(ctx context.Context) *Failure {
	lctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		failMu sync.Mutex
		first  *Failure
	)
	fail := func(f *Failure) {
		failMu.Lock()
		if first == nil {
			first = f
			cancel()
		}
		failMu.Unlock()
	}

	readyGates := make(map[string]chan struct{})
	var background []*Instance
	for _, name := range s.order {
		inst := s.instances[name]
		if inst.desc.Role == stack.RoleBackground {
			background = append(background, inst)
			readyGates[name] = make(chan struct{})
		}
	}

	var wg sync.WaitGroup
	for _, inst := range background {
		wg.Add(1)
		go func(inst *Instance) {
			defer wg.Done()

			for _, dep := range inst.desc.DependsOn {
				gate := readyGates[dep]
				select {
				case <-gate:
				case <-lctx.Done():
					return
				}
			}

			if lctx.Err() != nil {
				return
			}
			if f := s.startStage(lctx, inst); f != nil {
				fail(f)
				return
			}
			if lctx.Err() == nil {
				close(readyGates[inst.Name()])
			}
		}(inst)
	}
	wg.Wait()

	if first != nil {
		return first
	}
	if ctx.Err() != nil {
		// External cancellation during launch is a graceful stop.
		return nil
	}

	// Barrier passed: every background stage is ready. Only now does the
	// application start, so a stage failure can never race it.
	fg := s.instances[s.topo.Foreground().Name]
	if f := s.startStage(ctx, fg); f != nil {
		return f
	}
	if ctx.Err() != nil {
		return nil
	}

	s.log.Info("stack ready",
		zap.String("display", s.topo.Display.Identifier),
		zap.Int("stages", len(s.order)))
	if s.metrics != nil {
		s.metrics.SetStackReady(true)
	}
	s.bus.Publish(Event{Stage: "stack", State: "ready", At: time.Now()})
	return nil
}

// startStage launches one stage and waits for its readiness condition.
func (s *Supervisor) startStage(ctx context.Context, inst *Instance) *Failure {
	s.setState(inst, StateStarting, "")

	handle, err := process.Start(process.Spec{
		Name:   inst.desc.Name,
		Argv:   inst.desc.Argv,
		Dir:    inst.desc.Dir,
		Env:    inst.desc.Env,
		UsePTY: inst.desc.UsePTY,
	}, s.log)
	if err != nil {
		f := &Failure{Class: ClassLaunchFailure, Stage: inst.Name(), Err: err}
		s.failStage(inst, f)
		return f
	}
	inst.attach(handle)

	s.mu.Lock()
	s.started = append(s.started, inst)
	s.mu.Unlock()

	// Log probes read the live process output.
	if lp, ok := inst.desc.Probe.(*readiness.Log); ok && lp.Source == nil {
		lp.Source = handle.RecentOutput
	}

	if f := s.awaitReady(ctx, inst); f != nil {
		s.failStage(inst, f)
		return f
	}
	if ctx.Err() != nil {
		// External cancellation: leave the stage for teardown.
		return nil
	}

	elapsed := time.Since(handle.StartedAt())
	s.setState(inst, StateReady, fmt.Sprintf("after %s", elapsed.Round(time.Millisecond)))
	if s.metrics != nil {
		s.metrics.RecordReady(inst.Name(), elapsed)
	}
	s.setState(inst, StateRunning, "")
	return nil
}

// awaitReady blocks until the stage's probe succeeds, the process dies, the
// readiness deadline lapses, or ctx is canceled from outside.
func (s *Supervisor) awaitReady(ctx context.Context, inst *Instance) *Failure {
	probe := inst.desc.Probe
	if probe == nil {
		probe = readiness.None{}
	}
	// Stages without an observable condition are ready once running.
	if _, isNone := probe.(readiness.None); isNone {
		return nil
	}

	handle := inst.Handle()

	timeout := s.readyTimeout
	if inst.desc.ReadyTimeout > 0 {
		timeout = inst.desc.ReadyTimeout
	}

	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	probeErr := make(chan error, 1)
	go func() { probeErr <- probe.Await(rctx) }()

	select {
	case err := <-probeErr:
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			// External cancellation, not a stage fault.
			return nil
		}
		return &Failure{
			Class: ClassReadinessTimeout,
			Stage: inst.Name(),
			Err:   fmt.Errorf("%s not ready within %s: %w", probe.Describe(), timeout, err),
		}

	case <-handle.Done():
		// Dying while starting is a launch failure, not a timeout.
		res := handle.Result()
		return &Failure{
			Class: ClassLaunchFailure,
			Stage: inst.Name(),
			Err:   fmt.Errorf("exited with code %d before becoming ready", res.Code),
		}
	}
}

// Supervise blocks until the application exits, a background stage dies, or
// ctx is canceled. The returned failure is nil for graceful endings.
func (s *Supervisor) Supervise(ctx context.Context) *Failure {
	app := s.instances[s.topo.Foreground().Name]
	appHandle := app.Handle()
	if appHandle == nil {
		// Launch never reached the application.
		return nil
	}

	stop := make(chan struct{})
	defer close(stop)

	s.mu.Lock()
	watched := make([]*Instance, 0, len(s.started))
	for _, inst := range s.started {
		if inst.desc.Role == stack.RoleBackground {
			watched = append(watched, inst)
		}
	}
	s.mu.Unlock()

	depLost := make(chan *Instance, 1)
	for _, inst := range watched {
		go func(inst *Instance) {
			select {
			case <-inst.Handle().Done():
				select {
				case depLost <- inst:
				default:
				}
			case <-stop:
			}
		}(inst)
	}

	select {
	case <-ctx.Done():
		s.log.Info("shutdown requested")
		return nil

	case inst := <-depLost:
		res := inst.Handle().Result()
		f := &Failure{
			Class: ClassDependencyLost,
			Stage: inst.Name(),
			Err:   fmt.Errorf("exited with code %d while the stack was running", res.Code),
		}
		s.failStage(inst, f)
		return f

	case <-appHandle.Done():
		res := appHandle.Result()
		if res.Code == 0 {
			s.setState(app, StateExited, "")
			return nil
		}
		f := &Failure{
			Class: ClassApplicationCrashed,
			Stage: app.Name(),
			Err:   fmt.Errorf("application exited with code %d", res.Code),
		}
		s.failStage(app, f)
		return f
	}
}

// Shutdown stops every started stage in reverse launch order, giving each
// the grace period before escalating to SIGKILL. Calling it again waits for
// the first run to finish.
func (s *Supervisor) Shutdown() {
	s.shutdownOnce.Do(func() {
		defer close(s.shutdownDone)

		s.log.Info("stack teardown started")

		s.mu.Lock()
		started := make([]*Instance, len(s.started))
		copy(started, s.started)
		s.mu.Unlock()

		for i := len(started) - 1; i >= 0; i-- {
			inst := started[i]
			handle := inst.Handle()
			if handle == nil {
				continue
			}

			if handle.Running() {
				handle.Terminate(s.grace)
			}
			if !inst.State().Terminal() {
				s.setState(inst, StateExited, "stopped")
			}
		}

		if s.metrics != nil {
			s.metrics.SetStackReady(false)
			s.metrics.SetProcessesRunning(0)
		}
		s.bus.Publish(Event{Stage: "stack", State: "stopped", At: time.Now()})
		s.log.Info("stack teardown complete")
	})

	<-s.shutdownDone
}

// setState performs a validated transition with its log line, metric, and
// event. Every stage state change goes through here.
func (s *Supervisor) setState(inst *Instance, to State, detail string) {
	if err := inst.transition(to); err != nil {
		s.log.Warn("ignoring illegal transition", zap.Error(err))
		return
	}

	fields := []zap.Field{
		zap.String("stage", inst.Name()),
		zap.String("state", to.String()),
	}
	if detail != "" {
		fields = append(fields, zap.String("detail", detail))
	}
	s.log.Info("stage transition", fields...)

	if s.metrics != nil {
		s.metrics.RecordTransition(inst.Name(), to.String())
		s.metrics.SetProcessesRunning(s.runningCount())
	}
	s.bus.Publish(Event{Stage: inst.Name(), State: to.String(), Detail: detail, At: time.Now()})
}

// failStage records a classified failure on the stage.
func (s *Supervisor) failStage(inst *Instance, f *Failure) {
	s.setState(inst, StateFailed, f.Error())
	if s.metrics != nil {
		s.metrics.RecordFailure(inst.Name(), string(f.Class))
	}
}

func (s *Supervisor) runningCount() int {
	count := 0
	for _, inst := range s.instances {
		if h := inst.Handle(); h != nil && h.Running() {
			count++
		}
	}
	return count
}

// StackStatus is the JSON view served by the status API.
type StackStatus struct {
	Display stack.DisplayHandle `json:"display"`
	Ready   bool                `json:"ready"`
	Stages  []StageStatus       `json:"stages"`
}

// Snapshot returns the current state of every stage in declaration order.
func (s *Supervisor) Snapshot() StackStatus {
	status := StackStatus{Display: s.topo.Display, Ready: true}
	for _, name := range s.order {
		inst := s.instances[name]
		if inst.State() != StateRunning {
			status.Ready = false
		}
		status.Stages = append(status.Stages, inst.Describe())
	}
	return status
}

// StageOutput returns the retained output tail of a stage.
func (s *Supervisor) StageOutput(name string) ([]byte, error) {
	inst, ok := s.instances[name]
	if !ok {
		return nil, fmt.Errorf("unknown stage %s", name)
	}
	handle := inst.Handle()
	if handle == nil {
		return nil, fmt.Errorf("stage %s has not started", name)
	}
	return handle.RecentOutput(), nil
}

// Events returns the bus status subscribers attach to.
func (s *Supervisor) Events() *Bus {
	return s.bus
}

// Display returns the display handle the stack renders into.
func (s *Supervisor) Display() stack.DisplayHandle {
	return s.topo.Display
}
