package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	defaultSecretService = "habitflow"
	defaultTokenAccount  = "hub_token"
	defaultDBKeyAccount  = "db_key"
)

var (
	keyringGet    = keyring.Get
	keyringSet    = keyring.Set
	keyringDelete = keyring.Delete
)

// LoadToken loads the productivity hub API token.
//
// Order of precedence:
// 1) HABITFLOW_TOKEN environment variable.
// 2) System credential store item referenced by service/account.
func LoadToken() (string, error) {
	if token := strings.TrimSpace(os.Getenv("HABITFLOW_TOKEN")); token != "" {
		return token, nil
	}

	token, err := loadFromKeyring(tokenAccount())
	if err != nil {
		return "", err
	}

	if token == "" {
		return "", errors.New("hub token is empty")
	}

	return token, nil
}

// SaveToken stores the hub token in the system credential store.
func SaveToken(token string) error {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return errors.New("hub token cannot be empty")
	}
	return saveToKeyring(tokenAccount(), trimmed)
}

// ClearToken removes the hub token from the system credential store. A
// token that was never stored is not an error.
func ClearToken() error {
	service := envOrDefault("HABITFLOW_KEYCHAIN_SERVICE", defaultSecretService)
	account := tokenAccount()

	if err := keyringDelete(service, account); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return fmt.Errorf(
			"failed to delete keyring item service=%q account=%q: %w",
			service,
			account,
			err,
		)
	}

	return nil
}

// LoadDBKey loads the local database encryption key from the credential
// store. The HABITFLOW_DB_KEY environment variable overrides it.
func LoadDBKey() (string, error) {
	if key := strings.TrimSpace(os.Getenv("HABITFLOW_DB_KEY")); key != "" {
		return key, nil
	}
	return loadFromKeyring(defaultDBKeyAccount)
}

// SaveDBKey stores the local database encryption key.
func SaveDBKey(key string) error {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return errors.New("database key cannot be empty")
	}
	return saveToKeyring(defaultDBKeyAccount, trimmed)
}

// tokenAccount honours the account override for the hub token only. The
// database key always uses its fixed account so the two secrets cannot
// collide under one override.
func tokenAccount() string {
	return envOrDefault("HABITFLOW_KEYCHAIN_ACCOUNT", defaultTokenAccount)
}

func loadFromKeyring(account string) (string, error) {
	service := envOrDefault("HABITFLOW_KEYCHAIN_SERVICE", defaultSecretService)

	secret, err := keyringGet(service, account)
	if err != nil {
		return "", fmt.Errorf(
			"failed to read keyring item service=%q account=%q: %w",
			service,
			account,
			err,
		)
	}

	return strings.TrimSpace(secret), nil
}

func saveToKeyring(account, secret string) error {
	service := envOrDefault("HABITFLOW_KEYCHAIN_SERVICE", defaultSecretService)

	if err := keyringSet(service, account, secret); err != nil {
		return fmt.Errorf(
			"failed to store keyring item service=%q account=%q: %w",
			service,
			account,
			err,
		)
	}

	return nil
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
