package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var errFileTooLarge = errors.New("file too large")

// saveUpload writes an uploaded file to the upload directory under a unique
// name and returns its path and the sanitized original name.
func (s *Server) saveUpload(header *multipart.FileHeader) (string, string, error) {
	if s.cfg.MaxUploadBytes > 0 && header.Size > s.cfg.MaxUploadBytes {
		return "", "", fmt.Errorf("%w: %d bytes exceeds the %d byte limit", errFileTooLarge, header.Size, s.cfg.MaxUploadBytes)
	}

	name := filepath.Base(strings.ReplaceAll(header.Filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	path := filepath.Join(s.cfg.UploadDir, uuid.NewString()+"_"+name)

	src, err := header.Open()
	if err != nil {
		return "", "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", "", fmt.Errorf("failed to create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", "", err
	}
	return path, name, nil
}
