// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM (Go Object Relational Mapping) to properly configure
// MySQL connections based on the application's configuration. SQLite is supported for
// local runs and tests.
//
// # Connect
//
// The generic Connect function establishes a connection to the database. It is agnostic
// to the inventory schema regarding connection establishment; the Schema Inspector
// relies on knowing the expected tables.
//
// # Schema Inspection
//
// The package includes tools to inspect the database schema, used by the startup
// schema check. It allows retrieving table columns and verifying matches against
// the inventory models.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(db, "ip_assets")
package database
