// Package migration manages the relational schema for the handover store.
//
// Migration files are embedded per dialect (postgres, mysql) and applied
// through golang-migrate. The package exposes a Migrator for programmatic
// use and a CLI wrapper for the migrate subcommands. Sqlite deployments
// are development-only and get their schema from the automatic migration
// run at server startup; the sqlite sql driver is deliberately not linked
// here because the GORM layer already registers one under the same name.
package migration
