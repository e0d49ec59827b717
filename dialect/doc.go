// Package dialect defines the contracts shared by the SQL core: the driver
// interfaces used to execute statements and the Profile interface that
// describes how a database vendor spells SQL.
//
// # Dialect Constants
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite3"
//	dialect.Oracle   = "oracle"
//	dialect.Derby    = "derby"
//	dialect.DB2      = "db2"
//
// # Profiles
//
// A Profile carries capability flags (Feature), identifier and literal
// quoting, placeholders, limit handling, sequence syntax and a registry of
// function emulation rules. Concrete profiles live in dialect/profile:
//
//	p, ok := profile.Lookup("oracle")
//	if p.Has(dialect.SupportsSequence) {
//	    q, _ := p.SequenceQuery("S_USERS") // SELECT S_USERS.nextval FROM dual
//	}
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// dialect/sql provides the database/sql backed implementation.
//
// # Sub-packages
//
//   - dialect/sql: renderer and driver implementation
//   - dialect/sql/ast: vendor-neutral expression and statement tree
//   - dialect/sql/function: function emulation rules
//   - dialect/sql/keygen: generated key resolution and sequences
//   - dialect/sql/schema: live metadata probes
//   - dialect/sql/sqlgraph: insert execution
//   - dialect/sqltype: column type mapping
//   - dialect/sqlschema: generation annotations
package dialect
