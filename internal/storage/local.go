package storage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStorage writes images to a directory served as static files.
type LocalStorage struct {
	dir     string
	baseURL string
}

func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStorage{dir: dir, baseURL: baseURL}, nil
}

func (s *LocalStorage) StoreCapsuleImages(_ context.Context, files []*multipart.FileHeader) ([]StoredFile, error) {
	out := make([]StoredFile, 0, len(files))
	for _, fh := range files {
		name := uuid.NewString() + filepath.Ext(fh.Filename)
		dst := filepath.Join(s.dir, name)

		if err := saveFile(fh, dst); err != nil {
			return nil, fmt.Errorf("store %s: %w", fh.Filename, err)
		}

		rel := filepath.ToSlash(filepath.Join(s.dir, name))
		url := "/" + rel
		if s.baseURL != "" {
			url = s.baseURL + "/" + rel
		}
		out = append(out, StoredFile{OriginalName: fh.Filename, URL: url, Path: rel})
	}
	return out, nil
}

func saveFile(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, src)
	return err
}
