package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

var (
	envOnce   sync.Once
	envLoaded string
)

// envCandidates are tried in order; the first one present is loaded.
var envCandidates = []string{".env", filepath.Join("..", ".env")}

// LoadEnv loads environment variables from the first .env file found in the
// working directory or its parent. Variables already set in the process
// environment are kept. It returns the file loaded, or "" when none was.
func LoadEnv() string {
	envOnce.Do(func() {
		envLoaded, _ = loadEnvFrom(envCandidates...)
	})
	return envLoaded
}

func loadEnvFrom(paths ...string) (string, error) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return "", err
		}
		if err := godotenv.Load(p); err != nil {
			return "", fmt.Errorf("error loading %s: %w", p, err)
		}
		return p, nil
	}
	return "", nil
}
