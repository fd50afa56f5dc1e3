package relation

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/paveg/polyframe/internal/dataframe"
	"github.com/paveg/polyframe/internal/dtypes"
	"github.com/paveg/polyframe/internal/errors"
)

// TablePrefix starts the name of every table created by Materialize
const TablePrefix = "pf_"

// Materialize copies an Arrow frame into a new table inside one
// transaction and returns a relation over it.
func Materialize(ctx context.Context, db *sql.DB, df *dataframe.DataFrame) (*Relation, error) {
	table := TablePrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	names := df.Columns()
	types := df.DTypes()
	if len(names) == 0 {
		return nil, errors.NewInvalidInputError("from_eager", "cannot store a frame without columns")
	}

	defs := make([]string, len(names))
	marks := make([]string, len(names))
	columns := make([]Column, len(names))
	for i, name := range names {
		defs[i] = QuoteIdent(name) + " " + DeclType(types[i])
		marks[i] = "?"
		columns[i] = Column{Name: name, Type: types[i]}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewBackendError("from_eager", err)
	}
	defer func() { _ = tx.Rollback() }()

	create := "CREATE TABLE " + QuoteIdent(table) + " (" + strings.Join(defs, ", ") + ")"
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return nil, errors.NewBackendError("from_eager", err)
	}

	insert := "INSERT INTO " + QuoteIdent(table) + " VALUES (" + strings.Join(marks, ", ") + ")"
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return nil, errors.NewBackendError("from_eager", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := 0; i < df.Len(); i++ {
		row := df.Row(i)
		for j, v := range row {
			if b, ok := v.(bool); ok && types[j] == dtypes.Boolean {
				row[j] = boolToInt(b)
			}
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return nil, errors.NewBackendError("from_eager", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewBackendError("from_eager", err)
	}
	return New(db, "SELECT * FROM "+QuoteIdent(table), columns), nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
