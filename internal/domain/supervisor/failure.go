package supervisor

import "fmt"

// Class partitions stack failures so each maps to a distinct exit code.
type Class string

const (
	// ClassLaunchFailure covers processes that could not start or died
	// before becoming ready.
	ClassLaunchFailure Class = "launch_failure"
	// ClassReadinessTimeout covers stages whose readiness condition was
	// never observed within the deadline.
	ClassReadinessTimeout Class = "readiness_timeout"
	// ClassDependencyLost covers background stages dying while the stack
	// was running.
	ClassDependencyLost Class = "dependency_lost"
	// ClassApplicationCrashed covers the foreground application exiting
	// non-zero.
	ClassApplicationCrashed Class = "application_crashed"
)

// Exit codes reported by the supervisor process.
const (
	ExitOK       = 0
	ExitConfig   = 2
	ExitLaunch   = 10
	ExitTimeout  = 11
	ExitDepLost  = 12
	ExitAppCrash = 13
)

// ExitCode maps a failure class to the supervisor's exit code.
func (c Class) ExitCode() int {
	switch c {
	case ClassLaunchFailure:
		return ExitLaunch
	case ClassReadinessTimeout:
		return ExitTimeout
	case ClassDependencyLost:
		return ExitDepLost
	case ClassApplicationCrashed:
		return ExitAppCrash
	default:
		return 1
	}
}

// Failure ties a classified failure to the stage that caused it.
type Failure struct {
	Class Class
	Stage string
	Err   error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: stage %s: %v", f.Class, f.Stage, f.Err)
	}
	return fmt.Sprintf("%s: stage %s", f.Class, f.Stage)
}

// Unwrap exposes the underlying cause.
func (f *Failure) Unwrap() error {
	return f.Err
}

// Outcome is what a run ended with. A nil Failure means graceful shutdown.
type Outcome struct {
	Failure *Failure
}

// ExitCode returns the code the supervisor process should exit with.
func (o Outcome) ExitCode() int {
	if o.Failure == nil {
		return ExitOK
	}
	return o.Failure.Class.ExitCode()
}
