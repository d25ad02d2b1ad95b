/*
Package stack declares what to launch: the stages of the remote desktop
pipeline and the virtual display they share.

# Overview

The default topology chains four stages. A virtual X display (Xvfb) renders
headlessly, a VNC server (x11vnc) attaches to it on loopback, a WebSocket
bridge (websockify with the noVNC web root) exposes the desktop to browsers,
and the foreground application draws into the display it finds in DISPLAY.

Dependencies express launch order: desktop needs display, bridge needs
desktop, and the application needs the display. The supervisor additionally
holds the foreground application back until every background stage is ready.

# Custom Topologies

SERVICES_FILE points at a YAML or TOML file (chosen by extension) that
replaces the default stages:

	stages:
	  - name: display
	    command: Xvfb :1 -screen 0 1024x768x24 -nolisten tcp
	    probe: {type: display}
	  - name: recorder
	    command: ffmpeg -f x11grab -i :1 out.mp4
	    depends_on: [display]
	    env: {DISPLAY: ":1"}
	    ready_timeout: 30s
	  - name: app
	    command: python3 nexus.py
	    depends_on: [display]
	    foreground: true

Commands with arguments containing whitespace must use the argv list form
instead of command. ready_timeout overrides READY_TIMEOUT for one stage.
*/
package stack
