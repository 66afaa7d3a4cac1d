package mysql

// Config holds MySQL repository configuration derived from storage.Config.
type Config struct {
	// DSN uses the go-sql-driver format, e.g.
	//   "etl:secret@tcp(127.0.0.1:3306)/traffic?charset=utf8mb4"
	// parseTime is forced on.
	DSN string

	// Table is the target table; "db.table" is accepted.
	Table string

	// Columns is the ordered list of destination columns.
	Columns []string

	// KeyColumns is the natural key; its first column gets the no-op update.
	KeyColumns []string
}
