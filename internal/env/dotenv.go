package env

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadDotenv pre-loads a .env file adjacent to the process, using
// setdefault semantics: variables already present in the environment are
// left untouched. Missing files are not an error.
func LoadDotenv(path string) {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		slog.Warn("dotenv load failed", "path", filepath.Clean(path), "error", err)
	}
}
