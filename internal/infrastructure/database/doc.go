// Package database provides the SQLite handle that backs the garagedoor
// key-value store.
//
// Schema changes are plain SQL files embedded by the migrations package
// and applied in version order by Migrate. Each file pair is
// YYYYMMDD_HHMMSS_description.up.sql / .down.sql.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
