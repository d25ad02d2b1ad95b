/*
Package supervisor drives the desktop stack through one run: launch,
readiness, supervision, teardown.

# Overview

Each stage moves through a small lifecycle that never restarts:

	pending -> starting -> ready -> running -> exited | failed

Background stages launch as soon as their dependencies are ready and may
overlap. The foreground application is held back until every background
stage is ready, so a launch failure can never race application startup.
Once running, the supervisor watches all of them: the application's exit
ends the run, a background exit is a lost dependency, and an external
cancellation is a graceful stop.

Failures carry a class, and each class maps to a distinct exit code:

	0  graceful shutdown
	10 launch failure
	11 readiness timeout
	12 dependency lost
	13 application crashed

(2 is reserved for configuration errors before a supervisor exists.)

Teardown walks the started stages in reverse order, delivering SIGTERM and
escalating to SIGKILL when the grace period lapses. Shutdown is idempotent;
concurrent callers wait for the first teardown to finish.

# Example Usage

	sup, err := supervisor.New(topo, supervisor.Options{
		Logger:       log,
		Metrics:      metrics,
		ReadyTimeout: 15 * time.Second,
		GracePeriod:  5 * time.Second,
	})
	if err != nil {
		return err
	}

	outcome := sup.Run(ctx)
	os.Exit(outcome.ExitCode())
*/
package supervisor
