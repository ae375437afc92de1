// Package api holds the HTTP surface of switchboard. Handlers live in the
// handlers subpackage; routing and middleware are wired in cmd/switchboard.
package api
