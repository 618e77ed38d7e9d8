package store

import (
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

func init() {
	Register(&Dialect{
		Name:         "postgres",
		DriverName:   "pgx",
		GooseDialect: "postgres",
		ListTablesSQL: `SELECT table_name FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
			ORDER BY table_name`,
		PrimaryKeySQL: `SELECT kcu.column_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
			  ON tc.constraint_name = kcu.constraint_name
			 AND tc.table_schema = kcu.table_schema
			 AND tc.table_name = kcu.table_name
			WHERE tc.constraint_type = 'PRIMARY KEY'
			  AND tc.table_schema = current_schema()
			  AND tc.table_name = $1
			ORDER BY kcu.ordinal_position`,
		NumberedPlaceholders: true,
		Types: map[string]string{
			"string":    "VARCHAR(%d)",
			"text":      "TEXT",
			"integer":   "INTEGER",
			"decimal":   "DECIMAL(10, 2)",
			"boolean":   "BOOLEAN",
			"timestamp": "TIMESTAMP",
		},
		Serial: func(_, column string) ([]string, string) {
			return nil, `"` + column + `" SERIAL PRIMARY KEY`
		},
	})
}
