package store

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const runsTable = "compile_runs"

// migrate creates the history tables if they are missing.
func migrate(ctx context.Context, db *sql.DB) error {
	b := entsql.Dialect(dialect.SQLite)
	q, args := b.CreateTable(runsTable).IfNotExists().
		Columns(
			// sequence is the short run number shown by the history
			// commands. AUTOINCREMENT keeps numbers of pruned runs retired.
			b.Column("sequence").Type("INTEGER").Attr("PRIMARY KEY AUTOINCREMENT"),
			b.Column("id").Type("TEXT").Attr("NOT NULL UNIQUE"),
			b.Column("timestamp").Type("INTEGER").Attr("NOT NULL"),
			b.Column("spec_path").Type("TEXT").Attr("NOT NULL"),
			b.Column("name").Type("TEXT").Attr("NOT NULL"),
			b.Column("outcome").Type("TEXT").Attr("NOT NULL"),
			b.Column("error").Type("TEXT").Attr("NOT NULL DEFAULT ''"),
			b.Column("labels").Type("INTEGER").Attr("NOT NULL DEFAULT 0"),
			b.Column("boxes").Type("INTEGER").Attr("NOT NULL DEFAULT 0"),
			b.Column("tests").Type("INTEGER").Attr("NOT NULL DEFAULT 0"),
			b.Column("tests_passed").Type("INTEGER").Attr("NOT NULL DEFAULT 0"),
			b.Column("samples").Type("TEXT").Attr("NOT NULL DEFAULT ''"),
			b.Column("boxed_formula").Type("TEXT").Attr("NOT NULL DEFAULT ''"),
			b.Column("output_dir").Type("TEXT").Attr("NOT NULL DEFAULT ''"),
			b.Column("output_bytes").Type("INTEGER").Attr("NOT NULL DEFAULT 0"),
			b.Column("duration_ms").Type("INTEGER").Attr("NOT NULL DEFAULT 0"),
		).
		Query()
	if _, err := db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("create %s: %w", runsTable, err)
	}

	_, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS compile_runs_timestamp ON compile_runs (timestamp)`)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}
