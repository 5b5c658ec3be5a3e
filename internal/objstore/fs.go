package objstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/team-leekim/newsnack-ai/internal/config"
)

// FSStore writes media under a local directory. It serves development
// setups where the directory is exposed by a static file server.
type FSStore struct {
	root          string
	publicBaseURL string
}

func NewFS(cfg config.Storage) (*FSStore, error) {
	root := strings.TrimSpace(cfg.LocalDir)
	if root == "" {
		return nil, errors.New("objstore: fs backend requires storage.local_dir")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("objstore: create root %q: %w", root, err)
	}
	return &FSStore{root: root, publicBaseURL: cfg.PublicBaseURL}, nil
}

func (s *FSStore) PutBytes(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(s.root, filepath.FromSlash(cleaned))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("objstore: create directory for %q: %w", cleaned, err)
	}

	// Write-then-rename so readers never see a partial file.
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("objstore: stage %q: %w", cleaned, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("objstore: write %q: %w", cleaned, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("objstore: write %q: %w", cleaned, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("objstore: finalize %q: %w", cleaned, err)
	}

	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + cleaned, nil
	}
	return "file://" + dest, nil
}

func cleanKey(key string) (string, error) {
	cleaned := strings.Trim(strings.TrimSpace(key), "/")
	if cleaned == "" {
		return "", errors.New("objstore: empty key")
	}
	for _, part := range strings.Split(cleaned, "/") {
		if part == "" || part == "." || part == ".." {
			return "", fmt.Errorf("objstore: invalid key %q", key)
		}
	}
	return cleaned, nil
}
