package handlers

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Uploaded images are capped at 2MB and restricted to common raster formats.
const maxImageBytes = 2 << 20

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// UploadsBaseDir returns the root directory for stored images. It is served
// statically under /storage.
func UploadsBaseDir() string {
	if dir := os.Getenv("UPLOADS_DIR"); dir != "" {
		return dir
	}
	return "./storage"
}

// validateTaskImage checks the type and size constraints of an uploaded image.
// Returns a human-readable message when the file is rejected.
func validateTaskImage(file *multipart.FileHeader) string {
	if file.Size > maxImageBytes {
		return "image must not be larger than 2MB"
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExts[ext] {
		return "image must be a jpeg, png or gif file"
	}

	src, err := file.Open()
	if err != nil {
		return "image could not be read"
	}
	defer src.Close()

	// Sniff the actual content rather than trusting the extension
	head := make([]byte, 512)
	n, err := src.Read(head)
	if err != nil && err != io.EOF {
		return "image could not be read"
	}
	if !strings.HasPrefix(http.DetectContentType(head[:n]), "image/") {
		return "image must be a jpeg, png or gif file"
	}

	return ""
}

// saveTaskImage stores an uploaded image under <base>/tasks and returns the
// path relative to the uploads base, as recorded in task.image_path.
func saveTaskImage(file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	relPath := filepath.Join("tasks", uuid.NewString()+ext)
	fullPath := filepath.Join(UploadsBaseDir(), relPath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create uploads directory: %w", err)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	// URLs always use forward slashes
	return filepath.ToSlash(relPath), nil
}

// deleteTaskImage removes a stored image. Best effort: a leftover blob is
// logged, never surfaced to the caller.
func deleteTaskImage(relPath string) {
	if relPath == "" {
		return
	}
	fullPath := filepath.Join(UploadsBaseDir(), filepath.FromSlash(relPath))
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		log.Printf("⚠️ Failed to delete stored image %s: %v", relPath, err)
	}
}
