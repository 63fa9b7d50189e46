// Package mirror keeps a throwaway on-disk copy of synced records. It is a
// read-fast convenience tier: records land here after every successful sync
// and the whole store can be rebuilt from the hub or the local database at
// any time.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/diskv/v3"
)

const (
	CollectionHabits  = "habits"
	CollectionDayLogs = "daylogs"
)

type Store struct {
	d        *diskv.Diskv
	basePath string
}

// Open creates a store rooted at basePath. The directory is created lazily
// on first write.
func Open(basePath string) *Store {
	return &Store{
		d: diskv.New(diskv.Options{
			BasePath:          basePath,
			AdvancedTransform: keyToPathTransform,
			InverseTransform:  pathToKeyTransform,
			CacheSizeMax:      1024 * 1024, // 1MB
		}),
		basePath: basePath,
	}
}

// OpenDefault roots the store under the user cache directory, honouring the
// HABITFLOW_MIRROR_DIR override.
func OpenDefault() (*Store, error) {
	if dir := strings.TrimSpace(os.Getenv("HABITFLOW_MIRROR_DIR")); dir != "" {
		return Open(dir), nil
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user cache directory: %w", err)
	}
	return Open(filepath.Join(cacheDir, "habitflow", "mirror")), nil
}

// Put stores v as JSON under collection/key.
func (s *Store) Put(collection, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode mirror record %s/%s: %w", collection, key, err)
	}
	if err := s.d.Write(joinKey(collection, key), data); err != nil {
		return fmt.Errorf("write mirror record %s/%s: %w", collection, key, err)
	}
	return nil
}

// Get decodes the record at collection/key into out. The bool reports
// whether the record existed.
func (s *Store) Get(collection, key string, out any) (bool, error) {
	data, err := s.d.Read(joinKey(collection, key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read mirror record %s/%s: %w", collection, key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode mirror record %s/%s: %w", collection, key, err)
	}
	return true, nil
}

// Delete removes collection/key. Deleting a missing record is not an error.
func (s *Store) Delete(collection, key string) error {
	if err := s.d.Erase(joinKey(collection, key)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("erase mirror record %s/%s: %w", collection, key, err)
	}
	return nil
}

// Keys lists the record keys stored under collection.
func (s *Store) Keys(ctx context.Context, collection string) []string {
	var keys []string
	prefix := collection + "/"
	for key := range s.d.Keys(ctx.Done()) {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, strings.TrimPrefix(key, prefix))
		}
	}
	return keys
}

// ReplaceCollection drops everything under collection and writes the given
// records. Marshal failures abort before any delete happens so a bad record
// cannot empty the mirror.
func (s *Store) ReplaceCollection(ctx context.Context, collection string, records map[string]any) error {
	encoded := make(map[string][]byte, len(records))
	for key, v := range records {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode mirror record %s/%s: %w", collection, key, err)
		}
		encoded[key] = data
	}

	for _, key := range s.Keys(ctx, collection) {
		if err := s.Delete(collection, key); err != nil {
			return err
		}
	}
	for key, data := range encoded {
		if err := s.d.Write(joinKey(collection, key), data); err != nil {
			return fmt.Errorf("write mirror record %s/%s: %w", collection, key, err)
		}
	}
	return nil
}

// Wipe removes the whole store from disk.
func (s *Store) Wipe() error {
	if err := s.d.EraseAll(); err != nil {
		return fmt.Errorf("erase mirror store: %w", err)
	}
	return nil
}

func joinKey(collection, key string) string {
	return collection + "/" + key
}

func keyToPathTransform(s string) *diskv.PathKey {
	parts := strings.Split(s, "/")
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1],
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	return strings.Join(append(append([]string{}, pathKey.Path...), pathKey.FileName), "/")
}
