// Package snapshot keeps rendered tree images in a local content-addressed
// tree so a render can be shared and fetched again by key.
package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const digestPrefix = "sha256"

// ErrNotFound is returned when no snapshot exists for a key.
var ErrNotFound = errors.New("snapshot not found")

var extRegex = regexp.MustCompile(`^[a-z0-9]{1,8}$`)

// Snapshot describes one stored image.
type Snapshot struct {
	Key       string `json:"key"`
	SHA256    string `json:"sha256"`
	SizeBytes int64  `json:"size_bytes"`
}

// Store writes snapshots under root. Identical images share one file.
type Store struct {
	root string
}

// Open creates a Store rooted at root.
func Open(root string) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("snapshot root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, "tmp"), 0o755); err != nil {
		return nil, err
	}
	return &Store{root: abs}, nil
}

// Put streams r to disk and files it under its digest with the given
// extension, e.g. "svg".
func (s *Store) Put(ctx context.Context, ext string, r io.Reader) (Snapshot, error) {
	var zero Snapshot
	if s == nil {
		return zero, fmt.Errorf("snapshot store is not configured")
	}
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if !extRegex.MatchString(ext) {
		return zero, fmt.Errorf("invalid snapshot extension %q", ext)
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, "tmp"), "put-*")
	if err != nil {
		return zero, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		cleanup()
		return zero, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return zero, err
	}

	digest := hex.EncodeToString(h.Sum(nil))
	snap := Snapshot{
		Key:       fmt.Sprintf("%s/%s/%s.%s", digestPrefix, digest[0:2], digest, ext),
		SHA256:    digest,
		SizeBytes: n,
	}
	dst := filepath.Join(s.root, filepath.FromSlash(snap.Key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		cleanup()
		return zero, err
	}

	if _, err := os.Stat(dst); err == nil {
		_ = os.Remove(tmpPath)
		return snap, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		cleanup()
		return zero, err
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		if _, statErr := os.Stat(dst); statErr == nil {
			_ = os.Remove(tmpPath)
			return snap, nil
		}
		cleanup()
		return zero, err
	}
	return snap, nil
}

// Open returns a reader for the snapshot stored under key.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if s == nil {
		return nil, fmt.Errorf("snapshot store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.pathFromKey(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Delete removes a snapshot. Missing snapshots are ignored.
func (s *Store) Delete(ctx context.Context, key string) error {
	if s == nil {
		return fmt.Errorf("snapshot store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.pathFromKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ValidKey reports whether key has the shape Put produces.
func ValidKey(key string) bool {
	parts := strings.Split(key, "/")
	if len(parts) != 3 || parts[0] != digestPrefix {
		return false
	}
	name, ext, ok := strings.Cut(parts[2], ".")
	if !ok || !extRegex.MatchString(ext) || len(name) != sha256.Size*2 {
		return false
	}
	if _, err := hex.DecodeString(name); err != nil {
		return false
	}
	return parts[1] == name[0:2]
}

func (s *Store) pathFromKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if !ValidKey(key) {
		return "", fmt.Errorf("invalid snapshot key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}
