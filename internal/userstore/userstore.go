// Package userstore implements the two login/register SQL statements
// the reference's HttpRequest::UserVerify ran directly as
// string-formatted queries. Both are parameterized here -- the
// reference is vulnerable to SQL injection via the username field;
// fixing that is mandatory, not optional (see the design notes).
package userstore

import (
	"context"
	"database/sql"
)

// Verify checks name/pass for a login (isLogin true) or performs a
// register-if-absent for a new user (isLogin false), returning true iff
// the requested action succeeded.
func Verify(ctx context.Context, db *sql.DB, name, pass string, isLogin bool) (bool, error) {
	if name == "" || pass == "" {
		return false, nil
	}
	if isLogin {
		return login(ctx, db, name, pass)
	}
	return register(ctx, db, name, pass)
}

func login(ctx context.Context, db *sql.DB, name, pass string) (bool, error) {
	var password string
	err := db.QueryRowContext(ctx, `SELECT password FROM user WHERE username = ? LIMIT 1`, name).Scan(&password)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return password == pass, nil
}

func register(ctx context.Context, db *sql.DB, name, pass string) (bool, error) {
	var existing string
	err := db.QueryRowContext(ctx, `SELECT username FROM user WHERE username = ? LIMIT 1`, name).Scan(&existing)
	if err == nil {
		return false, nil // username taken
	}
	if err != sql.ErrNoRows {
		return false, err
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO user(username, password) VALUES (?, ?)`, name, pass); err != nil {
		return false, err
	}
	return true, nil
}
