/*
Package cache wraps go-redis with connection lifecycle management, a
background health check, and JSON convenience helpers.

Manager owns the Redis client: initialization, periodic Ping with zap
alerting, and graceful Close. Get returns the sentinel ErrCacheMiss when a
key is absent; IsCacheMiss distinguishes a miss from a backend failure so
callers can treat only the latter as degraded-cache conditions.

Switchboard uses this package for one thing: short-TTL caching of agent
configuration records. The cache is advisory and every path through it
falls back to the authoritative store.
*/
package cache
