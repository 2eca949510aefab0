// Package storage keeps uploaded review files in a flat namespace keyed by
// generated filename.
package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrInvalidName  = errors.New("invalid file name")
)

// FileStore persists uploaded files.
type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Remove deletes name; a missing file is not an error.
	Remove(ctx context.Context, name string) error
}

const filenameTimeLayout = "2006-01-02-15-04-05"

// GenerateFilename builds "file-<timestamp>-<random>.<ext>" from the upload
// time and the client supplied name. The random part keeps two uploads in the
// same second apart.
func GenerateFilename(now time.Time, original string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	name := "file-" + now.Format(filenameTimeLayout) + "-" + suffix
	if ext := sanitizeExt(original); ext != "" {
		name += "." + ext
	}
	return name
}

func sanitizeExt(original string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(original), "."))
	var b strings.Builder
	for _, r := range ext {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > 10 {
		out = out[:10]
	}
	return out
}

// ValidName reports whether name is a single flat path element.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}
