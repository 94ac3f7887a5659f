package builder

import (
	"context"

	"github.com/satishbabariya/sqlbuilder/query"
)

// InsertQuery renders a multi-row INSERT into the current table and resets the builder
func (b *Builder) InsertQuery(rows ...map[string]any) (*query.Query, error) {
	defer b.reset()
	return b.buildInsert(rows)
}

func (b *Builder) buildInsert(rows []map[string]any) (*query.Query, error) {
	if b.state.err != nil {
		return nil, b.state.err
	}
	if b.state.table == "" {
		return nil, query.Invalid("INSERT requires a table")
	}
	return b.gen.GenerateInsert(b.state.table, rows)
}

// UpdateQuery renders the UPDATE statement and resets the builder
func (b *Builder) UpdateQuery(set map[string]any) (*query.Query, error) {
	defer b.reset()
	return b.buildUpdate(set)
}

func (b *Builder) buildUpdate(set map[string]any) (*query.Query, error) {
	if b.state.err != nil {
		return nil, b.state.err
	}
	return b.gen.GenerateUpdate(b.clauses(), set)
}

// DeleteQuery renders the DELETE statement and resets the builder
func (b *Builder) DeleteQuery() (*query.Query, error) {
	defer b.reset()
	return b.buildDelete()
}

func (b *Builder) buildDelete() (*query.Query, error) {
	if b.state.err != nil {
		return nil, b.state.err
	}
	return b.gen.GenerateDelete(b.clauses())
}

// Insert inserts one row and returns the number of affected rows
func (b *Builder) Insert(ctx context.Context, row map[string]any) (int64, error) {
	return b.InsertAll(ctx, []map[string]any{row})
}

// InsertGetLastID inserts one row and returns the generated id
func (b *Builder) InsertGetLastID(ctx context.Context, row map[string]any) (int64, error) {
	defer b.reset()
	q, err := b.buildInsert([]map[string]any{row})
	if err != nil {
		return 0, err
	}
	res, err := b.write(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.LastInsertID, nil
}

// InsertAll inserts rows in a single statement. Every row must have the same
// columns. It returns the number of affected rows.
func (b *Builder) InsertAll(ctx context.Context, rows []map[string]any) (int64, error) {
	defer b.reset()
	q, err := b.buildInsert(rows)
	if err != nil {
		return 0, err
	}
	res, err := b.write(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// Update assigns set on the rows matching the WHERE condition and returns the
// number of affected rows. Without a WHERE every row is updated unless the
// builder is strict.
func (b *Builder) Update(ctx context.Context, set map[string]any) (int64, error) {
	defer b.reset()
	q, err := b.buildUpdate(set)
	if err != nil {
		return 0, err
	}
	res, err := b.write(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// Delete removes the rows matching the WHERE condition and returns their
// number. Without a WHERE every row is removed unless the builder is strict.
func (b *Builder) Delete(ctx context.Context) (int64, error) {
	defer b.reset()
	q, err := b.buildDelete()
	if err != nil {
		return 0, err
	}
	res, err := b.write(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

func (b *Builder) write(ctx context.Context, q *query.Query) (*query.Result, error) {
	exec, err := b.executor()
	if err != nil {
		return nil, err
	}
	return exec.Exec(ctx, q)
}
