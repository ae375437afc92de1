/*
Package server manages HTTP server lifecycle: non-blocking start, graceful
shutdown, and signal handling.

Manager wraps net/http.Server with a listener it owns, an asynchronous
error channel, and SIGINT/SIGTERM handling via WaitForShutdown. Switchboard
runs two of these, one for the API surface and one for the metrics
endpoint, and shuts both down within the configured timeout.
*/
package server
