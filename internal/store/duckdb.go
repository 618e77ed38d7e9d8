package store

import (
	"fmt"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

func init() {
	Register(&Dialect{
		Name:       "duckdb",
		DriverName: "duckdb",
		ListTablesSQL: `SELECT table_name FROM information_schema.tables
			WHERE table_schema = 'main' AND table_type = 'BASE TABLE'
			ORDER BY table_name`,
		PrimaryKeySQL: `SELECT unnest(constraint_column_names)
			FROM duckdb_constraints()
			WHERE table_name = ? AND constraint_type = 'PRIMARY KEY'`,
		Types: map[string]string{
			"string":    "VARCHAR(%d)",
			"text":      "VARCHAR",
			"integer":   "INTEGER",
			"decimal":   "DECIMAL(10, 2)",
			"boolean":   "BOOLEAN",
			"timestamp": "TIMESTAMP",
		},
		Serial: func(table, column string) ([]string, string) {
			seq := fmt.Sprintf("seq_%s_%s", table, column)
			return []string{fmt.Sprintf(`CREATE SEQUENCE IF NOT EXISTS "%s"`, seq)},
				fmt.Sprintf(`"%s" INTEGER PRIMARY KEY DEFAULT nextval('%s')`, column, seq)
		},
	})
}
