/*
Package database manages the GORM connection pool: lifecycle, background
health checks, statistics, and transaction helpers.

PoolManager wraps an open *gorm.DB and its underlying *sql.DB, applying
pool limits from PoolConfig and pinging on an interval. WithTransaction
runs a callback in a transaction; WithTransactionRetry adds exponential
backoff for transient failures such as deadlocks and serialization
conflicts, which is how concurrent ownership writes against the same
conversation are absorbed.
*/
package database
