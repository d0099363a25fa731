// Package photo persists captured visitor and host photos and hands back
// references that the API serves statically.
package photo

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidImage reports an empty or undecodable image payload.
var ErrInvalidImage = errors.New("invalid image payload")

// Store saves an image supplied as base64 (a data URL or bare base64)
// under a category such as "visitors" or "hosts" and returns a reference
// that clients can later fetch.
type Store interface {
	Save(data, category string) (string, error)
}

// FSStore writes photos to the local filesystem under a root directory.
// References are web paths of the form /uploads/<category>/<file>.
type FSStore struct {
	root string
}

// NewFS creates a filesystem-backed store rooted at dir.
func NewFS(dir string) *FSStore {
	return &FSStore{root: dir}
}

// Save decodes the payload and writes it under <root>/<category> with a
// time-derived filename so concurrent uploads never overwrite each other.
func (s *FSStore) Save(data, category string) (string, error) {
	raw, err := decodeBase64Image(data)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := fmt.Sprintf("%s_%d.png", strings.TrimSuffix(category, "s"), time.Now().UnixNano())
	if err := os.WriteFile(filepath.Join(dir, name), raw, 0o644); err != nil {
		return "", fmt.Errorf("write photo: %w", err)
	}
	return "/uploads/" + category + "/" + name, nil
}

// Retrieve reads a photo back by the reference Save returned.
func (s *FSStore) Retrieve(ref string) ([]byte, error) {
	rel := strings.TrimPrefix(ref, "/uploads/")
	rel = filepath.Clean(rel)
	if rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return nil, fmt.Errorf("invalid photo reference %q", ref)
	}
	return os.ReadFile(filepath.Join(s.root, rel))
}

// decodeBase64Image accepts a full data URL ("data:image/png;base64,...")
// or bare base64, matching what browser camera capture sends.
func decodeBase64Image(data string) ([]byte, error) {
	if idx := strings.Index(data, ","); idx >= 0 {
		data = data[idx+1:]
	}
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, ErrInvalidImage
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(raw) == 0 {
		return nil, ErrInvalidImage
	}
	return raw, nil
}
