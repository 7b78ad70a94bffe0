// Package envfile reads and updates a dotenv file one key at a time.
package envfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/joho/godotenv"
)

// Store is a dotenv file on disk. Set rewrites only the lines of its key and
// keeps every other line and the line order untouched.
//
// The rewrite is read-modify-write without locking; callers serialize
// concurrent writers.
type Store struct {
	Path string
}

func New(path string) *Store {
	return &Store{Path: path}
}

// Get returns the value of key as parsed by godotenv.
func (s *Store) Get(key string) (string, bool, error) {
	values, err := godotenv.Read(s.Path)
	if err != nil {
		return "", false, fmt.Errorf("read env file %s: %w", s.Path, err)
	}
	v, ok := values[key]
	return v, ok, nil
}

// Set replaces the `KEY=...` line with `KEY="value"`, appending the line
// when the key is missing. A missing file is left alone and reported as
// not written.
func (s *Store) Set(key, value string) (bool, error) {
	info, err := os.Stat(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat env file %s: %w", s.Path, err)
	}

	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return false, fmt.Errorf("read env file %s: %w", s.Path, err)
	}

	content := upsertLine(string(raw), key, value)

	if err := renameio.WriteFile(s.Path, []byte(content), info.Mode().Perm(), renameio.WithExistingPermissions()); err != nil {
		return false, fmt.Errorf("write env file %s: %w", s.Path, err)
	}
	return true, nil
}

func upsertLine(content, key, value string) string {
	line := key + `="` + strings.ReplaceAll(value, `"`, `\"`) + `"`
	pattern := regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(key) + `=[^\r\n]*`)
	if pattern.MatchString(content) {
		return pattern.ReplaceAllLiteralString(content, line)
	}
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + line + "\n"
}
