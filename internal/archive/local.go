package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Local writes raw fetches under a base directory. Keys like
// "tickets/self/20260301T060000Z.html" become nested paths.
type Local struct {
	baseDir string
}

// NewLocal creates a filesystem archive rooted at baseDir, creating it if
// needed.
func NewLocal(baseDir string) (*Local, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("archive directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &Local{baseDir: baseDir}, nil
}

// Save writes data under key and returns a file:// location.
func (s *Local) Save(_ context.Context, key string, data []byte) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("archive key is required")
	}
	fullPath := filepath.Join(s.baseDir, key)

	cleanBase := filepath.Clean(s.baseDir)
	if !strings.HasPrefix(filepath.Clean(fullPath), cleanBase+string(filepath.Separator)) {
		return "", fmt.Errorf("archive key %q escapes the base directory", key)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("create archive subdirectory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o600); err != nil {
		return "", fmt.Errorf("write archive file: %w", err)
	}
	return fmt.Sprintf("file://%s", fullPath), nil
}
