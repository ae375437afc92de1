/*
Package handover is the conversation ownership core of switchboard.

Every conversation is owned by exactly one party at a time, either the bot
or a human operator. The package provides:

  - Ledger: the authoritative ownership record with its append-only
    transition history. Conversations that have never transitioned
    materialize lazily with bot ownership.
  - Evaluator: the ordered eligibility check that decides whether the bot
    may respond in a conversation right now.
  - Engine: idempotent ownership transitions. A request that matches the
    current owner is a no-op that appends no history and emits no
    notification.
  - Coordinator: agent activation and deactivation. Deactivation bumps the
    config version, invalidates the cache, and moves every bot-owned
    conversation of that agent to human ownership.
  - AgentStore and CachedAgentStore: agent configuration with a monotonic
    version and a short-TTL cache in front of it.
  - Notifier: operator-facing handover notifications over RabbitMQ.

Invariant to keep in mind when changing this package: a human owner is
absolute. No bot-side disposition may override HumanOwned, and the send
boundary re-checks eligibility so a transfer that lands mid-generation
suppresses the bot reply.
*/
package handover
