package receipt

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// PhotoStore keeps raw receipt photo artifacts on disk
type PhotoStore interface {
	// Save stores photo bytes and returns the path they live at
	Save(filename string, data []byte) (string, error)

	// Get retrieves photo bytes by path
	Get(path string) ([]byte, error)

	// Delete removes a stored photo
	Delete(path string) error
}

// LocalPhotoStore implements PhotoStore on the local filesystem
type LocalPhotoStore struct {
	basePath string
}

// NewLocalPhotoStore creates a LocalPhotoStore rooted at basePath
func NewLocalPhotoStore(basePath string) (*LocalPhotoStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating photo directory: %w", err)
	}

	return &LocalPhotoStore{
		basePath: basePath,
	}, nil
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	manySpaces  = regexp.MustCompile(`\s+`)
)

// SanitizeFilename cleans up a filename by removing special characters
// and truncating phone-generated long names
func SanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)

	base = unsafeChars.ReplaceAllString(base, "")
	base = manySpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// Save stores a photo under a sanitized name
func (l *LocalPhotoStore) Save(filename string, data []byte) (string, error) {
	path := filepath.Join(l.basePath, SanitizeFilename(filename))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing photo: %w", err)
	}
	return path, nil
}

// Get retrieves photo bytes by path
func (l *LocalPhotoStore) Get(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	return data, nil
}

// Delete removes a stored photo
func (l *LocalPhotoStore) Delete(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting photo: %w", err)
	}
	return nil
}
