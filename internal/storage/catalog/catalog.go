package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jgivc/pluginmaster/internal/entity"
	"github.com/spf13/afero"
)

const (
	indent   = "    "
	filePerm = 0644
)

type catalogStorage struct {
	fs   afero.Fs
	path string
	log  *slog.Logger
}

func NewCatalogStorage(fs afero.Fs, path string, log *slog.Logger) *catalogStorage {
	return &catalogStorage{
		fs:   fs,
		path: path,
		log:  log.With(slog.String("item", "CatalogStorage")),
	}
}

// Save overwrites the catalog document with manifests.
func (s *catalogStorage) Save(_ context.Context, manifests []*entity.Manifest) error {
	content, err := Encode(manifests)
	if err != nil {
		return err
	}

	if err := afero.WriteFile(s.fs, s.path, content, filePerm); err != nil {
		return fmt.Errorf("cannot write catalog %s: %w", s.path, err)
	}

	s.log.Info("Catalog written", slog.String("path", s.path), slog.Int("count", len(manifests)))

	return nil
}

func (s *catalogStorage) Load(_ context.Context) ([]*entity.Manifest, error) {
	content, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("cannot read catalog %s: %w", s.path, err)
	}

	var manifests []*entity.Manifest
	if err := json.Unmarshal(content, &manifests); err != nil {
		return nil, fmt.Errorf("cannot unmarshal catalog %s: %w", s.path, err)
	}

	for i, m := range manifests {
		if m == nil {
			return nil, fmt.Errorf("catalog %s: entry %d is null", s.path, i)
		}
	}

	return manifests, nil
}

// Encode renders manifests as the catalog document: a JSON array indented
// with four spaces, without HTML escaping.
func Encode(manifests []*entity.Manifest) ([]byte, error) {
	if manifests == nil {
		manifests = []*entity.Manifest{}
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(manifests); err != nil {
		return nil, fmt.Errorf("cannot encode catalog: %w", err)
	}

	return buf.Bytes(), nil
}
