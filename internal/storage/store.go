// Package storage provides filesystem-backed durable storage for uploaded
// todo attachments, split by kind into images/ and files/ subdirectories.
package storage

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Kind selects which attachment slot a file belongs to
type Kind string

const (
	// KindImage accepts JPEG and PNG uploads
	KindImage Kind = "image"
	// KindDocument accepts PDF uploads
	KindDocument Kind = "file"
)

const (
	// MaxUploadSize is the maximum accepted size per uploaded file (5MB)
	MaxUploadSize = 5 << 20

	// URLPrefix is the public path prefix under which stored files are served
	URLPrefix = "/uploads"

	imagesSubdir = "images"
	filesSubdir  = "files"
)

// allowedTypes maps each kind to its accepted mime types
var allowedTypes = map[Kind]map[string]bool{
	KindImage: {
		"image/jpeg": true,
		"image/png":  true,
	},
	KindDocument: {
		"application/pdf": true,
	},
}

// ValidationError reports a rejected upload (bad type or oversized). It maps
// to a 400 response at the handler boundary.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ValidateUpload checks mime type and size before any bytes hit disk
func ValidateUpload(kind Kind, contentType string, size int64) error {
	allowed, ok := allowedTypes[kind]
	if !ok {
		return &ValidationError{Message: fmt.Sprintf("unknown attachment kind %q", kind)}
	}
	if !allowed[contentType] {
		switch kind {
		case KindImage:
			return &ValidationError{Message: "invalid file type: only JPG and PNG image files are allowed"}
		default:
			return &ValidationError{Message: "invalid file type: only PDF files are allowed"}
		}
	}
	if size > MaxUploadSize {
		return &ValidationError{Message: fmt.Sprintf("file exceeds maximum size of %d bytes", MaxUploadSize)}
	}
	return nil
}

// Reference points at a stored attachment
type Reference struct {
	// URL is the store-relative public path, e.g. /uploads/images/image-17...-12345.png
	URL string
	// OriginalName is the filename the client uploaded
	OriginalName string
}

// Store persists uploaded files under a base directory
type Store struct {
	baseDir string
}

// New creates a store rooted at baseDir, creating the kind subdirectories
func New(baseDir string) (*Store, error) {
	for _, subdir := range []string{imagesSubdir, filesSubdir} {
		if err := os.MkdirAll(filepath.Join(baseDir, subdir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create upload directory: %w", err)
		}
	}
	return &Store{baseDir: baseDir}, nil
}

// BaseDir returns the directory the store writes under
func (s *Store) BaseDir() string { return s.baseDir }

// Save validates and writes an uploaded file, returning its public reference.
// Filenames are generated to be collision resistant; the original name is
// only preserved in the returned reference.
func (s *Store) Save(kind Kind, originalName, contentType string, data []byte) (*Reference, error) {
	if err := ValidateUpload(kind, contentType, int64(len(data))); err != nil {
		return nil, err
	}

	name := generateFilename(kind, originalName)
	subdir := subdirFor(kind)

	if err := os.WriteFile(filepath.Join(s.baseDir, subdir, name), data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}

	return &Reference{
		URL:          path.Join(URLPrefix, subdir, name),
		OriginalName: originalName,
	}, nil
}

// Delete removes a stored file by its public reference. Deleting a missing
// file is not an error. References outside the store are rejected.
func (s *Store) Delete(ref string) error {
	rel, ok := strings.CutPrefix(ref, URLPrefix+"/")
	if !ok {
		return fmt.Errorf("invalid attachment reference %q", ref)
	}

	rel = filepath.Clean(rel)
	if rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return fmt.Errorf("invalid attachment reference %q", ref)
	}

	err := os.Remove(filepath.Join(s.baseDir, rel))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}

func subdirFor(kind Kind) string {
	if kind == KindImage {
		return imagesSubdir
	}
	return filesSubdir
}

// generateFilename builds <kind>-<unix ms>-<random><ext> from the upload
func generateFilename(kind Kind, originalName string) string {
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	suffix := binary.BigEndian.Uint32(buf[:]) % 1_000_000_000

	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("%s-%d-%d%s", kind, time.Now().UnixMilli(), suffix, ext)
}
