// Package ws streams stack lifecycle events over WebSocket.
//
// Overview
//
// A client connecting to the events endpoint first receives a snapshot
// frame carrying the full stack status, then one event frame per stage
// transition until it disconnects. Frames are JSON text messages:
//
//	{"type": "snapshot", "stack": {...}}
//	{"type": "event", "event": {"stage": "display", "state": "ready", ...}}
//
// Events come from the supervisor's bus, so a slow client drops frames
// rather than stalling the stack.
package ws
