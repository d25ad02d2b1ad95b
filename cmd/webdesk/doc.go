// Package main is the entry point for the webdesk supervisor.
//
// The binary boots a virtual desktop stack and babysits it for the
// lifetime of one foreground application:
//
//	Xvfb (virtual display) → x11vnc (loopback VNC) → websockify (public bridge)
//	                      → application (foreground, DISPLAY set)
//
// The supervisor launches each service, waits for it to become ready,
// then watches the whole stack. Any process death ends the run; nothing
// is ever restarted. The exit code tells the outer platform what
// happened:
//
//	0  graceful end (application exited cleanly, or external signal)
//	2  configuration error
//	10 a service failed to launch
//	11 a service never became ready in time
//	12 a background service died while the stack was running
//	13 the application crashed
//
// Configuration:
//   - Environment variables only (12-factor), APP_COMMAND is required
//   - Optional SERVICES_FILE pointing at a YAML stage list
//
// Signals:
//   - SIGINT, SIGTERM: graceful reverse-order teardown, exit 0
package main
