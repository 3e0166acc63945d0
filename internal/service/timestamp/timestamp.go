package timestamp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/jgivc/pluginmaster/internal/adapter/fsadapter"
	"github.com/jgivc/pluginmaster/internal/common"
	"github.com/jgivc/pluginmaster/internal/entity"
	"github.com/spf13/afero"
)

type History interface {
	LastCommitTime(ctx context.Context, path string) (int64, error)
}

type CatalogStorage interface {
	Load(ctx context.Context) ([]*entity.Manifest, error)
	Save(ctx context.Context, manifests []*entity.Manifest) error
}

type timestampService struct {
	fs         afero.Fs
	pluginsDir string
	history    History
	catalog    CatalogStorage
	log        *slog.Logger
}

func NewTimestampService(fs afero.Fs, pluginsDir string, history History, catalog CatalogStorage, log *slog.Logger) *timestampService {
	return &timestampService{
		fs:         fs,
		pluginsDir: pluginsDir,
		history:    history,
		catalog:    catalog,
		log:        log.With(slog.String("item", "TimestampService")),
	}
}

// Reconcile reads the catalog back, sets LastUpdated of every entry to the
// latest commit time of its archive or manifest and rewrites the catalog.
// The catalog is rewritten even when nothing changed.
func (s *timestampService) Reconcile(ctx context.Context) ([]*entity.Manifest, error) {
	manifests, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot load catalog: %w", err)
	}

	var changed int
	for i, m := range manifests {
		name, ok := m.InternalName()
		if !ok {
			return nil, fmt.Errorf("catalog entry %d: %w", i, common.ErrMissingInternalName)
		}

		modified, err := s.ModifiedAt(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("cannot get modification time of %s: %w", name, err)
		}

		if !needsUpdate(m, modified) {
			continue
		}

		if err := m.Set(entity.KeyLastUpdated, strconv.FormatInt(modified, 10)); err != nil {
			return nil, err
		}
		changed++

		s.log.Debug("LastUpdated changed", slog.String("name", name), slog.Int64("modified", modified))
	}

	if err := s.catalog.Save(ctx, manifests); err != nil {
		return nil, fmt.Errorf("cannot save catalog: %w", err)
	}

	s.log.Info("Timestamps reconciled", slog.Int("count", len(manifests)), slog.Int("changed", changed))

	return manifests, nil
}

// ModifiedAt returns the later of the last commit times of the plugin's
// archive and loose manifest. A file missing on disk counts as 0.
func (s *timestampService) ModifiedAt(ctx context.Context, pluginName string) (int64, error) {
	archive, err := s.lastCommitTime(ctx, filepath.Join(s.pluginsDir, pluginName, fsadapter.ArchiveFileName))
	if err != nil {
		return 0, err
	}

	manifest, err := s.lastCommitTime(ctx, filepath.Join(s.pluginsDir, pluginName, fsadapter.ManifestFileName(pluginName)))
	if err != nil {
		return 0, err
	}

	return max(archive, manifest), nil
}

func (s *timestampService) lastCommitTime(ctx context.Context, path string) (int64, error) {
	exists, err := afero.Exists(s.fs, path)
	if err != nil {
		return 0, fmt.Errorf("cannot check %s: %w", path, err)
	}

	if !exists {
		return 0, nil
	}

	return s.history.LastCommitTime(ctx, path)
}

// needsUpdate reports whether LastUpdated is missing or differs from
// modified. Both string and number values are compared numerically.
func needsUpdate(m *entity.Manifest, modified int64) bool {
	raw, exists := m.Get(entity.KeyLastUpdated)
	if !exists {
		return true
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		current, err := strconv.ParseInt(str, 10, 64)

		return err != nil || current != modified
	}

	var current int64
	if err := json.Unmarshal(raw, &current); err == nil {
		return current != modified
	}

	return true
}
