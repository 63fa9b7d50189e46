//go:build sqlcipher
// +build sqlcipher

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"

	_ "github.com/mutecomm/go-sqlcipher/v4"
)

// Cipher parameters are fixed so every build opens existing databases the
// same way. Changing them invalidates previously written files.
const cipherParams = "_pragma_cipher_page_size=4096&_pragma_kdf_iter=256000"

func openSecureSQLite(path string, key string) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma_key=%s&%s",
		url.PathEscape(path),
		url.QueryEscape(key),
		cipherParams,
	)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open encrypted sqlite db: %w", err)
	}

	// The file holds habit and journal data keyed to one user; keep it
	// readable by the owner only.
	if err := os.Chmod(path, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
		db.Close()
		return nil, fmt.Errorf("restrict db file permissions: %w", err)
	}

	return db, nil
}

func secureSQLiteSupported() bool {
	return true
}
