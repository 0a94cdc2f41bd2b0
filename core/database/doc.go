// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM to configure MySQL or SQLite connections
// based on the application's configuration. The database backs the package
// manifest store (declared package dependencies and content ids).
//
// # Connect
//
// Connect picks the dialector from Config.Driver, applies the configured
// timeouts to the DSN and verifies the connection with a ping. Open does the
// same for a caller-supplied dialector, which tests use with go-sqlmock.
//
// # Schema Inspection
//
// GetTableColumns lists the columns of a table (SHOW COLUMNS on MySQL, PRAGMA
// table_info on SQLite). MissingColumns compares them with the columns a
// store requires.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	missing, err := database.MissingColumns(db, "package_manifests", []string{"name"})
package database
