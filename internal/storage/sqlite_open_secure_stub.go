//go:build !sqlcipher
// +build !sqlcipher

package storage

import (
	"database/sql"
	"errors"
)

func openSecureSQLite(path string, key string) (*sql.DB, error) {
	return nil, errors.New("encrypted database support is not compiled in; rebuild with '-tags sqlcipher'")
}

func secureSQLiteSupported() bool {
	return false
}
