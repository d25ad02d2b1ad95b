/*
Package http exposes the supervisor's state over a small REST surface.

# Endpoints

	GET /                    service description
	GET /health              liveness and stack readiness
	GET /stack               per-stage snapshot
	GET /stack/:name/output  retained output tail of one stage
	GET /metrics/json        counter snapshot for dashboards

The Prometheus exposition endpoint and the WebSocket event stream are wired
by the server package alongside these handlers.
*/
package http
