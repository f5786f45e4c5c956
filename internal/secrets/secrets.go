// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads tracker credentials from the environment, topped up
// from a .env file when one exists. The API key never lives in the config
// file; this package is the only place it enters the program.
package secrets

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// APIKeyVar is the environment variable carrying the target tracker API key.
const APIKeyVar = "SHELFGAP_API_KEY"

// Load reads path as a dotenv file and returns its key/value pairs merged
// with the process environment, the environment winning on conflict. A
// missing file is not an error; Load then returns environment values only.
func Load(path string) (map[string]string, error) {
	merged := make(map[string]string)

	fileVals, err := godotenv.Read(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}
	for k, v := range fileVals {
		if v = strings.TrimSpace(v); v != "" {
			merged[k] = v
		}
	}

	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if v = strings.TrimSpace(v); v != "" {
			merged[k] = v
		}
	}

	return merged, nil
}

// APIKey extracts the tracker API key from a loaded secret set. The key is
// required for verification runs, so absence is an error here rather than
// at first use.
func APIKey(secrets map[string]string) (string, error) {
	if v := secrets[APIKeyVar]; v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%s is not set: export it or add it to .env", APIKeyVar)
}
