package keygen

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/GeeQuery/geequery-orm/dialect/profile"
	"github.com/GeeQuery/geequery-orm/dialect/sql"
	"github.com/GeeQuery/geequery-orm/dialect/sql/ast"
	"github.com/GeeQuery/geequery-orm/dialect/sqlschema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessInsertIdentityDefault(t *testing.T) {
	ctx := context.Background()
	tbl, id := ticketTable(t, sqlschema.Identity)
	r := NewResolver(Config{})
	obj := &Ticket{Title: "a"}

	clause := NewInsertClause(profile.MySQL, tbl.Ref(), true)
	require.NoError(t, r.ProcessInsert(ctx, id, obj, clause))
	assert.Equal(t, 1, clause.Len())
	require.Len(t, clause.GeneratedKeys(), 1)

	ins, err := clause.Build(ctx)
	require.NoError(t, err)
	assert.Empty(t, ins.Returning, "mysql reads keys through LastInsertId")
	q, args, err := sql.Render(ins, profile.MySQL)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO tickets (id) VALUES (DEFAULT)", q)
	assert.Empty(t, args)

	require.NoError(t, clause.GeneratedKeys()[0].Set(42))
	assert.Equal(t, int64(42), obj.ID)

	// Without a caller waiting for the key no callback is registered.
	clause = NewInsertClause(profile.MySQL, tbl.Ref(), false)
	require.NoError(t, r.ProcessInsert(ctx, id, obj, clause))
	assert.Empty(t, clause.GeneratedKeys())
}

func TestProcessInsertIdentitySkip(t *testing.T) {
	ctx := context.Background()
	tbl, id := ticketTable(t, sqlschema.Identity)
	r := NewResolver(Config{})

	clause := NewInsertClause(profile.SQLite, tbl.Ref(), true)
	require.NoError(t, r.ProcessInsert(ctx, id, &Ticket{}, clause))
	clause.Add("title", ast.Arg("a"))
	assert.Equal(t, 1, clause.Len())
	require.Len(t, clause.GeneratedKeys(), 1)
	assert.Equal(t, "id", clause.GeneratedKeys()[0].Column)
}

func TestProcessInsertReturning(t *testing.T) {
	ctx := context.Background()
	tbl, id := ticketTable(t, sqlschema.Identity)
	r := NewResolver(Config{})
	clause := NewInsertClause(profile.SQLite, tbl.Ref(), true)
	require.NoError(t, r.ProcessInsert(ctx, id, &Ticket{}, clause))
	ins, err := clause.Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, ins.Returning)
}

func TestProcessInsertManualKey(t *testing.T) {
	ctx := context.Background()
	tbl, id := ticketTable(t, sqlschema.Sequence)
	obj := &Ticket{ID: 5}

	r := NewResolver(Config{ManualSequence: true})
	clause := NewInsertClause(profile.Oracle, tbl.Ref(), true)
	require.NoError(t, r.ProcessInsert(ctx, id, obj, clause))
	ins, err := clause.Build(ctx)
	require.NoError(t, err)
	q, args, err := sql.Render(ins, profile.Oracle)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO TICKETS (ID) VALUES (:1)", q)
	assert.Equal(t, []any{int64(5)}, args)
	assert.Empty(t, clause.GeneratedKeys())

	// Zero keys are generated even when manual keys are allowed.
	obj.ID = 0
	clause = NewInsertClause(profile.Oracle, tbl.Ref(), true)
	require.NoError(t, r.ProcessInsert(ctx, id, obj, clause))
	_, err = clause.Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), obj.ID, "memory sequence starts at 1")

	// Without the setting a manual key is overwritten.
	obj.ID = 5
	r = NewResolver(Config{})
	clause = NewInsertClause(profile.Oracle, tbl.Ref(), true)
	require.NoError(t, r.ProcessInsert(ctx, id, obj, clause))
	_, err = clause.Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), obj.ID)
}

func TestAssigned(t *testing.T) {
	n, zero := int64(7), int64(0)
	var nilKey *int64
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"positive int", int64(5), true},
		{"zero", 0, false},
		{"negative", int32(-3), false},
		{"unsigned", uint16(2), true},
		{"pointer", &n, true},
		{"pointer to zero", &zero, false},
		{"nil pointer", nilKey, false},
		{"fraction", 0.5, false},
		{"float", 2.5, true},
		{"string", "5", false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, assigned(tt.v))
		})
	}
}

func TestProcessInsertNativeSequence(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := sql.OpenDB("oracle", db)

	ctx := context.Background()
	tbl, id := ticketTable(t, sqlschema.Sequence)
	r := NewResolver(Config{}, WithSequences(NewSequences(drv)))

	// Inline nextval when the key is not needed back.
	clause := NewInsertClause(drv.Profile(), tbl.Ref(), false)
	require.NoError(t, r.ProcessInsert(ctx, id, &Ticket{}, clause))
	ins, err := clause.Build(ctx)
	require.NoError(t, err)
	q, args, err := sql.Render(ins, drv.Profile())
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO TICKETS (ID) VALUES (S_TICKETS.nextval)", q)
	assert.Empty(t, args)

	// Pre-fetched and bound when the caller needs the key.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT S_TICKETS.nextval FROM dual")).
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(77))
	obj := &Ticket{}
	clause = NewInsertClause(drv.Profile(), tbl.Ref(), true)
	require.NoError(t, r.ProcessInsert(ctx, id, obj, clause))
	assert.Equal(t, int64(0), obj.ID, "fetched on build")
	ins, err = clause.Build(ctx)
	require.NoError(t, err)
	q, args, err = sql.Render(ins, drv.Profile())
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO TICKETS (ID) VALUES (:1)", q)
	assert.Equal(t, []any{int64(77)}, args)
	assert.Equal(t, int64(77), obj.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessInsertSequenceError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := sql.OpenDB("postgres", db)

	ctx := context.Background()
	tbl, id := ticketTable(t, sqlschema.Sequence)
	r := NewResolver(Config{}, WithSequences(NewSequences(drv)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT nextval('S_TICKETS')")).
		WillReturnError(assert.AnError)

	clause := NewInsertClause(drv.Profile(), tbl.Ref(), true)
	require.NoError(t, r.ProcessInsert(ctx, id, &Ticket{}, clause))
	_, err = clause.Build(ctx)
	require.ErrorIs(t, err, assert.AnError)
}
