// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) causes the init functions of each concrete storage backend to run,
// which in turn register their factories and DDL bootstrappers with the
// storage package.
//
// Importing this package makes the following storage kinds available:
//
//   - "sqlite"   (trafficetl/internal/storage/sqlite)
//   - "mysql"    (trafficetl/internal/storage/mysql)
//   - "postgres" (trafficetl/internal/storage/postgres)
//   - "mssql"    (trafficetl/internal/storage/mssql)
//
// Typical usage (in cmd/etl):
//
//	import _ "trafficetl/internal/storage/all" // enable all built-in backends
//
//	repo, err := storage.EnsureSchema(ctx, spec)
//	if err != nil {
//	    // missing table, bad DSN, DDL failure
//	}
//	defer repo.Close()
//
// A binary that supports only a subset of backends can import the backend
// packages it needs directly instead.
package all

import (
	_ "trafficetl/internal/storage/mssql"
	_ "trafficetl/internal/storage/mysql"
	_ "trafficetl/internal/storage/postgres"
	_ "trafficetl/internal/storage/sqlite"
)
