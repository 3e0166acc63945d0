package plugins

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jgivc/pluginmaster/internal/common"
	"github.com/jgivc/pluginmaster/internal/entity"
	"github.com/spf13/afero"
)

type FSAdapter interface {
	ToManifest(folderPath string) (*entity.Manifest, error)
}

type pluginStorage struct {
	fs      afero.Fs
	adapter FSAdapter
	root    string
	log     *slog.Logger
}

func NewPluginStorage(fs afero.Fs, adapter FSAdapter, root string, log *slog.Logger) *pluginStorage {
	return &pluginStorage{
		fs:      fs,
		adapter: adapter,
		root:    root,
		log:     log.With(slog.String("item", "PluginStorage")),
	}
}

// Scan returns one raw manifest per plugin folder below the root, in walk
// order. Folders without a manifest are skipped, any other error stops the scan.
func (s *pluginStorage) Scan(ctx context.Context) ([]*entity.Manifest, error) {
	dirs, err := s.listDirs()
	if err != nil {
		return nil, err
	}

	manifests := make([]*entity.Manifest, 0, len(dirs))
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			s.log.Info("Interrupted")

			return nil, err
		}

		manifest, err := s.adapter.ToManifest(dir)
		if err != nil {
			if errors.Is(err, common.ErrNoManifest) {
				continue
			}

			s.log.Error("Cannot scan folder", slog.String("folder_path", dir), slog.Any("error", err))

			return nil, fmt.Errorf("cannot scan folder %s: %w", dir, err)
		}

		name, _ := manifest.InternalName()
		s.log.Info("Found plugin", slog.String("name", name), slog.String("path", dir))
		manifests = append(manifests, manifest)
	}

	return manifests, nil
}

func (s *pluginStorage) listDirs() ([]string, error) {
	if _, err := s.fs.Stat(s.root); err != nil {
		if os.IsNotExist(err) {
			s.log.Warn("Plugins folder does not exist", slog.String("path", s.root))

			return nil, nil
		}

		return nil, fmt.Errorf("cannot stat plugins folder: %w", err)
	}

	var dirs []string
	err := afero.Walk(s.fs, s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() && path != s.root {
			dirs = append(dirs, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot walk plugins folder: %w", err)
	}

	return dirs, nil
}
