package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalFilesystem stores files in a directory on the local filesystem
// and serves them under publicPath.
type LocalFilesystem struct {
	baseFolder string
	publicPath string
}

// NewLocalFilesystem returns a filesystem driver rooted at baseFolder.
// Stored files get URLs below publicPath, e.g. "/uploads".
func NewLocalFilesystem(baseFolder, publicPath string) (*LocalFilesystem, error) {
	if err := os.MkdirAll(baseFolder, 0700); err != nil {
		return nil, err
	}
	return &LocalFilesystem{
		baseFolder: baseFolder,
		publicPath: strings.TrimSuffix(publicPath, "/"),
	}, nil
}

// Store writes data to the base folder and returns the public URL path.
func (f *LocalFilesystem) Store(key string, data []byte, contentType string) (string, error) {
	if strings.Contains(key, "..") || strings.ContainsRune(key, os.PathSeparator) {
		return "", fmt.Errorf("'..' is not allowed in a key")
	}
	if err := os.WriteFile(filepath.Join(f.baseFolder, key), data, 0600); err != nil {
		return "", err
	}
	return f.publicPath + "/" + key, nil
}

// Delete removes the file with the given key.
func (f *LocalFilesystem) Delete(key string) error {
	if strings.Contains(key, "..") || strings.ContainsRune(key, os.PathSeparator) {
		return fmt.Errorf("'..' is not allowed in a key")
	}
	return os.Remove(filepath.Join(f.baseFolder, key))
}
