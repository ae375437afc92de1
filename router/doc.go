/*
Package router runs the inbound message pipeline.

Processor takes a normalized inbound message and walks it through the
pipeline: validation, outbound-echo filtering, account resolution, ledger
binding, eligibility evaluation, reply generation, and delivery. The
eligibility check runs twice, once before generation and again at the send
boundary, so a human takeover that lands while the bot is thinking
suppresses the reply instead of racing it.

The AgentRuntime and Messenger interfaces isolate the two external
collaborators (the reply generator and the channel delivery service);
gateway.go provides their HTTP implementations.
*/
package router
