package dataset

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/unixpickle/luape/luape"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// OpenSQLite opens a SQLite database file.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	return db, nil
}

// OpenPostgres opens a PostgreSQL database from a connection string.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	return db, nil
}

// ReadSQL runs a query and reads one example per row. Result columns are
// matched to the metadata by name; NULL values are missing.
func ReadSQL(ctx context.Context, db *sql.DB, query string, md *Metadata) (*luape.Dataset, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "read sql")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "read sql")
	}
	d := md.NewDataset()
	values := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	record := make(map[string]string, len(columns))
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Wrap(err, "read sql")
		}
		for i, name := range columns {
			if values[i].Valid {
				record[name] = values[i].String
			} else {
				record[name] = ""
			}
		}
		if err := md.AddRecord(d, record); err != nil {
			return nil, errors.Wrapf(err, "read sql row %d", d.NumExamples()+1)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "read sql")
	}
	return d, nil
}
