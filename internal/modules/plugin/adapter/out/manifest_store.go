package out

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"daytask/internal/modules/plugin/domain"
)

// FileManifestStore reads <dataDir>/plugins/plugins.json. Relative binary
// paths resolve against the data dir.
type FileManifestStore struct {
	dataDir string
	path    string
}

func NewFileManifestStore(dataDir string) *FileManifestStore {
	return &FileManifestStore{dataDir: dataDir, path: filepath.Join(dataDir, "plugins", "plugins.json")}
}

func (s *FileManifestStore) Path() string {
	return s.path
}

func (s *FileManifestStore) Load(_ context.Context) ([]domain.Manifest, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read plugin manifests: %w", err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return []domain.Manifest{}, nil
	}
	var manifests []domain.Manifest
	decoder := json.NewDecoder(bytes.NewReader(b))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&manifests); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	for i := range manifests {
		binary := manifests[i].Binary
		if binary != "" && !filepath.IsAbs(binary) {
			manifests[i].Binary = filepath.Join(s.dataDir, binary)
		}
	}
	return manifests, nil
}
