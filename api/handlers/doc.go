/*
Package handlers implements the switchboard HTTP endpoints.

All responses share the Response envelope with a success flag, payload or
structured error, and timestamp. Errors map types.ErrorCode values to HTTP
status codes in one place (mapErrorCodeToHTTPStatus) so handlers never pick
status codes ad hoc.

Endpoint groups:

  - agents.go: agent activation state (status, activate, deactivate)
  - conversations.go: ownership (handover, eligibility, debug, history)
  - messages.go: inbound message intake feeding the router pipeline
  - health.go: liveness and readiness probes
*/
package handlers
