package httpapi

import (
	"crypto/subtle"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type APIKey struct {
	ID          string   `yaml:"id"`
	Key         string   `yaml:"key"`
	Permissions []string `yaml:"permissions"`
}

type APIKeyStore struct {
	keys []*APIKey
}

var knownPermissions = map[string]struct{}{
	PermCanRead:     {},
	PermCanDownload: {},
	PermCanUpload:   {},
	PermCanDelete:   {},
}

func LoadAPIKeys(path string) (*APIKeyStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read api keys file: %w", err)
	}

	var entries []APIKey
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse api keys file: %w", err)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("api keys file is empty")
	}

	store := &APIKeyStore{keys: make([]*APIKey, 0, len(entries))}
	seen := make(map[string]struct{}, len(entries))
	for i := range entries {
		entry := entries[i]
		entry.ID = strings.TrimSpace(entry.ID)
		entry.Key = strings.TrimSpace(entry.Key)
		if entry.ID == "" {
			return nil, fmt.Errorf("api key at index %d has empty id", i)
		}
		if entry.Key == "" {
			return nil, fmt.Errorf("api key %q has empty key", entry.ID)
		}
		if len(entry.Permissions) == 0 {
			return nil, fmt.Errorf("api key %q has no permissions", entry.ID)
		}
		for _, p := range entry.Permissions {
			if _, ok := knownPermissions[p]; !ok {
				return nil, fmt.Errorf("api key %q has unknown permission %q", entry.ID, p)
			}
		}
		if _, exists := seen[entry.Key]; exists {
			return nil, fmt.Errorf("duplicate api key value for id %q", entry.ID)
		}
		seen[entry.Key] = struct{}{}
		store.keys = append(store.keys, &entry)
	}

	return store, nil
}

// Lookup compares against every key so timing does not reveal a prefix match.
func (s *APIKeyStore) Lookup(key string) (*APIKey, bool) {
	if s == nil {
		return nil, false
	}
	var found *APIKey
	for _, k := range s.keys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(k.Key)) == 1 {
			found = k
		}
	}
	return found, found != nil
}

func (s *APIKeyStore) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}
