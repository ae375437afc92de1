// Command switchboard runs the conversation handover service: the ownership
// ledger, the bot eligibility gate, and the admin HTTP surface in front of
// them.
//
// Usage:
//
//	switchboard serve                       # start the service
//	switchboard serve --config config.yaml  # with a config file
//	switchboard migrate up                  # apply database migrations
//	switchboard health                      # probe a running instance
//	switchboard version                     # print build info
package main
