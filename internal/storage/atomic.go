package storage

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"content-harvest/internal/entity"
)

// writeFileAtomic writes data to a temp file in the same directory as path
// and renames it into place, so a reader never observes a partially
// written content.md, meta.json, snapshot, or run report.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &entity.IoError{Op: "mkdir", Path: dir, Cause: err}
	}
	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &entity.IoError{Op: "write temp", Path: tmp, Cause: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &entity.IoError{Op: "rename", Path: path, Cause: err}
	}
	return nil
}
