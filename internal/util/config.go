package util

import (
	"strings"

	"github.com/BurntSushi/toml"
)

type Configuration struct {
	Version   string
	BuildDate string
	Commit    string
	RootPath  string
	Store     Store
}

// Store holds the parsed TOML configuration tree. Host functions look values
// up by dotted key, e.g. "db.pool_size".
type Store struct {
	values map[string]interface{}
}

func LoadStore(path string) (Store, error) {
	values := map[string]interface{}{}
	if path == "" {
		return Store{values: values}, nil
	}
	if _, err := toml.DecodeFile(path, &values); err != nil {
		return Store{values: map[string]interface{}{}}, err
	}
	return Store{values: values}, nil
}

// Get resolves a dotted key through nested TOML tables.
func (s Store) Get(key string) (interface{}, bool) {
	if s.values == nil {
		return nil, false
	}
	parts := strings.Split(key, ".")
	var current interface{} = s.values
	for _, part := range parts {
		table, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = table[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
