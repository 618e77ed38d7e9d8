package store

import (
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

func init() {
	Register(&Dialect{
		Name:         "sqlite",
		DriverName:   "sqlite",
		GooseDialect: "sqlite",
		ListTablesSQL: `SELECT name FROM sqlite_master
			WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
			ORDER BY name`,
		PrimaryKeySQL: `SELECT name FROM pragma_table_info(?) WHERE pk > 0 ORDER BY pk`,
		// CURRENT_TIMESTAMP text, which the driver reads back as UTC.
		TimeLayout: "2006-01-02 15:04:05.999999999",
		TextTimes:  true,
		Types: map[string]string{
			"string":    "VARCHAR(%d)",
			"text":      "TEXT",
			"integer":   "INTEGER",
			"decimal":   "DECIMAL(10, 2)",
			"boolean":   "BOOLEAN",
			"timestamp": "TIMESTAMP",
		},
		Serial: func(_, column string) ([]string, string) {
			return nil, `"` + column + `" INTEGER PRIMARY KEY AUTOINCREMENT`
		},
	})
}

// sqliteDSN enables foreign keys and a busy timeout on file databases, and
// writes bound times in SQLite's own text layout.
func sqliteDSN(dsn string) string {
	if dsn == "" || dsn == ":memory:" {
		return "file::memory:?_pragma=foreign_keys(1)&_time_format=sqlite"
	}
	if containsQuery(dsn) {
		return dsn
	}
	return "file:" + dsn + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"
}
