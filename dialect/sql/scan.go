package sql

import (
	"database/sql"
	"fmt"
)

// ErrNoRows is returned by the Scan helpers for an empty result.
var ErrNoRows = sql.ErrNoRows

// ScanInt64 scans and returns an int64 from the first column of a single
// row. It fails if the rows hold anything but exactly one row.
func ScanInt64(rows ColumnScanner) (int64, error) {
	var n sql.NullInt64
	if err := scanOne(rows, &n); err != nil {
		return 0, err
	}
	if !n.Valid {
		return 0, fmt.Errorf("dialect/sql: unexpected NULL value")
	}
	return n.Int64, nil
}

// ScanString scans and returns a string from the first column of a single
// row. ok is false for NULL.
func ScanString(rows ColumnScanner) (s string, ok bool, err error) {
	var ns sql.NullString
	if err := scanOne(rows, &ns); err != nil {
		return "", false, err
	}
	return ns.String, ns.Valid, nil
}

func scanOne(rows ColumnScanner, dest any) error {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return ErrNoRows
	}
	if err := rows.Scan(dest); err != nil {
		return err
	}
	if rows.Next() {
		return fmt.Errorf("dialect/sql: expect exactly one row in result")
	}
	return rows.Err()
}
