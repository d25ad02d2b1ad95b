/*
Package readiness answers one question per stage: is it serving yet.

# Overview

Launching a child process only proves the binary executed. Each stage of the
stack becomes usable at a different observable moment: the virtual display
when its unix socket accepts connections, the VNC server when its TCP port
accepts, the bridge when it answers HTTP. Probes encode those conditions
behind a single Await call that respects context cancellation.

# Probes

  - TCP: port accepts a connection
  - HTTP: URL returns any response
  - Display: X unix socket exists and accepts
  - Log: process output matches a pattern
  - Delay: fixed settle time
  - None: ready immediately

# Example Usage

	probe := &readiness.TCP{Addr: "127.0.0.1:5900"}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := probe.Await(ctx); err != nil {
		// stage never became ready
	}
*/
package readiness
