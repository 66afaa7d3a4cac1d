// Package sqlite implements a SQLite-backed storage.Repository.
package sqlite

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:traffic.db?_pragma=busy_timeout(5000)"
	//   "traffic.db" (interpreted by the driver)
	DSN string

	// Table is the target table, e.g. "traffic_violations". Dotted values
	// such as "main.traffic_violations" are accepted.
	Table string

	// Columns is the ordered list of destination columns; every row passed
	// to InsertIgnore is aligned to it.
	Columns []string

	// KeyColumns is the natural key. Uniqueness itself is enforced by the
	// table's PRIMARY KEY; the repository only needs it for Describe-free
	// sanity checks.
	KeyColumns []string
}
