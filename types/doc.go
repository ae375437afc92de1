// Package types defines shared value types for switchboard: the structured
// error model used across the service and the wire-level message types
// exchanged with the intake and delivery collaborators.
package types
