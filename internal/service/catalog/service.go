package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jgivc/pluginmaster/internal/entity"
)

type PluginStorage interface {
	Scan(ctx context.Context) ([]*entity.Manifest, error)
}

type CatalogStorage interface {
	Save(ctx context.Context, manifests []*entity.Manifest) error
}

type Reconciler interface {
	Reconcile(ctx context.Context) ([]*entity.Manifest, error)
}

type Publisher interface {
	Publish(ctx context.Context, manifests []*entity.Manifest) error
}

type CatalogService struct {
	store      PluginStorage
	catalog    CatalogStorage
	trimmer    *Trimmer
	enricher   *Enricher
	reconciler Reconciler
	publisher  Publisher
	log        *slog.Logger
}

func NewCatalogService(store PluginStorage, catalog CatalogStorage, trimmer *Trimmer, enricher *Enricher,
	reconciler Reconciler, log *slog.Logger) *CatalogService {
	return &CatalogService{
		store:      store,
		catalog:    catalog,
		trimmer:    trimmer,
		enricher:   enricher,
		reconciler: reconciler,
		log:        log.With(slog.String("item", "CatalogService")),
	}
}

// WithPublisher mirrors the final catalog through p after every Generate.
func (s *CatalogService) WithPublisher(p Publisher) *CatalogService {
	s.publisher = p

	return s
}

// Build scans the plugin folders and returns trimmed, enriched manifests.
// Nothing is written.
func (s *CatalogService) Build(ctx context.Context) ([]*entity.Manifest, error) {
	raw, err := s.store.Scan(ctx)
	if err != nil {
		s.log.Error("Cannot scan", slog.Any("error", err))

		return nil, fmt.Errorf("cannot scan plugin store: %w", err)
	}

	s.log.Info("Scan plugin dirs", slog.Int("count", len(raw)))

	manifests := make([]*entity.Manifest, 0, len(raw))
	for _, m := range raw {
		manifests = append(manifests, s.trimmer.Trim(m))
	}

	for i, m := range manifests {
		if err := s.enricher.Enrich(m); err != nil {
			s.log.Error("Cannot enrich manifest", slog.Int("index", i), slog.Any("error", err))

			return nil, fmt.Errorf("cannot enrich manifest %d: %w", i, err)
		}
	}

	return manifests, nil
}

// Generate runs the whole pipeline: build, write the catalog, reconcile
// LastUpdated and optionally publish the result.
func (s *CatalogService) Generate(ctx context.Context) ([]*entity.Manifest, error) {
	manifests, err := s.Build(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.catalog.Save(ctx, manifests); err != nil {
		s.log.Error("Cannot save catalog", slog.Any("error", err))

		return nil, fmt.Errorf("cannot save catalog: %w", err)
	}

	manifests, err = s.reconciler.Reconcile(ctx)
	if err != nil {
		s.log.Error("Cannot reconcile timestamps", slog.Any("error", err))

		return nil, fmt.Errorf("cannot reconcile timestamps: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, manifests); err != nil {
			s.log.Error("Cannot publish catalog", slog.Any("error", err))

			return nil, fmt.Errorf("cannot publish catalog: %w", err)
		}
	}

	return manifests, nil
}
