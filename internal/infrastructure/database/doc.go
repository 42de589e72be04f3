// Package database opens the SQLite store behind the actuation audit.
//
// The store is optional: the bridge runs without it. When enabled it holds
// the actuations and connection_events tables created by the embedded
// migrations in package migrations.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if _, err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are plain SQL files named YYYYMMDD_HHMMSS_name.up.sql with an
// optional .down.sql. Each is applied in its own transaction and recorded in
// schema_migrations.
package database
