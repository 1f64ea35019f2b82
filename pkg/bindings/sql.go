package bindings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sandrolain/goformula/pkg/types"
)

// ErrNoRows is returned by LoadRow when the query yields no row.
var ErrNoRows = errors.New("bindings: query returned no rows")

// ErrColumnCount is returned by LoadPairs when the result does not have
// exactly two columns.
var ErrColumnCount = errors.New("bindings: expected 2 columns (name, value)")

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// LoadRow runs query and binds every column of the first row as a variable
// named after the column. It returns the number of variables bound.
func LoadRow(ctx context.Context, db Querier, vars *types.Context, query string, args ...any) (int, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("bindings: query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("bindings: columns: %w", err)
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("bindings: query: %w", err)
		}
		return 0, ErrNoRows
	}

	raw, err := scanRow(rows, len(cols))
	if err != nil {
		return 0, err
	}
	values := make([]types.Value, len(cols))
	for i, x := range raw {
		v, err := types.FromGo(x)
		if err != nil {
			return 0, fmt.Errorf("bindings: column %q: %w", cols[i], err)
		}
		values[i] = v
	}
	for i, name := range cols {
		vars.Set(name, values[i])
	}
	return len(cols), nil
}

// LoadPairs runs a query returning (name, value) rows and binds each row as
// a variable. Later rows win over earlier rows with the same name. It
// returns the number of rows read.
func LoadPairs(ctx context.Context, db Querier, vars *types.Context, query string, args ...any) (int, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("bindings: query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("bindings: columns: %w", err)
	}
	if len(cols) != 2 {
		return 0, fmt.Errorf("%w, got %d", ErrColumnCount, len(cols))
	}

	type pair struct {
		name string
		v    types.Value
	}
	var pairs []pair
	for rows.Next() {
		var name sql.NullString
		var x any
		if err := rows.Scan(&name, &x); err != nil {
			return 0, fmt.Errorf("bindings: scan: %w", err)
		}
		if !name.Valid || name.String == "" {
			return 0, fmt.Errorf("bindings: row %d: empty variable name", len(pairs)+1)
		}
		v, err := types.FromGo(x)
		if err != nil {
			return 0, fmt.Errorf("bindings: %q: %w", name.String, err)
		}
		pairs = append(pairs, pair{name.String, v})
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("bindings: query: %w", err)
	}

	for _, p := range pairs {
		vars.Set(p.name, p.v)
	}
	return len(pairs), nil
}

func scanRow(rows *sql.Rows, n int) ([]any, error) {
	raw := make([]any, n)
	ptrs := make([]any, n)
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("bindings: scan: %w", err)
	}
	return raw, nil
}
