/*
Package process launches and reaps the child processes of the desktop stack.

# Overview

Every stage of the stack (virtual display, VNC server, WebSocket bridge,
application) runs as one child process managed through a Handle. A Handle
owns the exec.Cmd, forwards the child's output to the structured log,
retains a bounded tail of that output for diagnostics, and exposes the exit
result through a done channel.

# Features

- Pipe or PTY output capture, selected per process
- Own process group per child so signals reach grandchildren
- SIGTERM with grace period, SIGKILL escalation
- Non-blocking exit observation via Done()

# Example Usage

	h, err := process.Start(process.Spec{
		Name: "display",
		Argv: []string{"Xvfb", ":1", "-screen", "0", "1024x768x24"},
	}, log)
	if err != nil {
		return err
	}

	select {
	case <-h.Done():
		res := h.Result()
		// inspect res.Code
	case <-ctx.Done():
		h.Terminate(5 * time.Second)
	}
*/
package process
