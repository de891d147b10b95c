// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials. Keys come from three
// places, checked in order: the process environment, a directory of
// plain-text files (filename is the key, trimmed contents the value), and
// a dotenv file.
//
// Supported keys: core-api-key (CORE_API_KEY).
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// CoreAPIKey names the CORE search API bearer token.
const CoreAPIKey = "core-api-key"

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged as warnings but do not abort.
func Load(dir string, log zerolog.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadEnvFile parses a dotenv file without touching the process
// environment. A missing file yields an empty map.
func LoadEnvFile(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	return values, nil
}

// EnvName maps a key file name to its environment variable name:
// "core-api-key" becomes "CORE_API_KEY".
func EnvName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// Lookup returns the value for key. The environment variable EnvName(key)
// wins; otherwise each source is checked in order under both the key
// name and its environment name. It returns "" when nothing is set.
func Lookup(key string, sources ...map[string]string) string {
	env := EnvName(key)
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v
	}
	for _, src := range sources {
		if v := strings.TrimSpace(src[key]); v != "" {
			return v
		}
		if v := strings.TrimSpace(src[env]); v != "" {
			return v
		}
	}
	return ""
}
