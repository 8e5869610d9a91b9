package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const secretService = "stockwise"

var errSecretNotFound = errors.New("secret not found")

// secretStore reads and writes secrets.json, laid out as
// {"stockwise": {"<account>": "<value>"}}.
type secretStore interface {
	Get(account string) (string, error)
	Set(account, value string) error
}

type fileSecrets struct {
	path string
}

func (f fileSecrets) read() (map[string]map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	var secrets map[string]map[string]string
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	return secrets, nil
}

func (f fileSecrets) Get(account string) (string, error) {
	secrets, err := f.read()
	if os.IsNotExist(err) {
		return "", errSecretNotFound
	}
	if err != nil {
		return "", err
	}
	val, ok := secrets[secretService][account]
	if !ok || val == "" {
		return "", errSecretNotFound
	}
	return val, nil
}

func (f fileSecrets) Set(account, value string) error {
	secrets, err := f.read()
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if secrets == nil {
		secrets = make(map[string]map[string]string)
	}
	if secrets[secretService] == nil {
		secrets[secretService] = make(map[string]string)
	}
	secrets[secretService][account] = value

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, out, 0o600)
}
