package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jgivc/pluginmaster/internal/common"
	"github.com/jgivc/pluginmaster/internal/entity"
	scatalog "github.com/jgivc/pluginmaster/internal/storage/catalog"
	"github.com/jgivc/pluginmaster/internal/util"
	"github.com/redis/go-redis/v9"
)

const (
	KeyPrefix        = "pm"
	KeyVersion1      = "v1"
	KeyVersion2      = "v2"
	KeyActiveVersion = "av"   // STRING. Active data version.
	KeyDocument      = "doc"  // STRING. doc:ver -> catalog document
	KeyIndex         = "ix"   // HASH. ix:ver InternalName -> manifest JSON
	KeyHash          = "hash" // STRING. hash:ver -> sha1 of the document (ETag)
	KeyRun           = "run"  // STRING. run:ver -> id of the run that wrote ver

	KeyEmpty     = ""
	KeySeparator = ":"
)

var (
	ClearableKeys = []string{KeyDocument, KeyIndex, KeyHash, KeyRun}
)

type catalogRepository struct {
	cl    *redis.Client
	runID string
	log   *slog.Logger
}

func NewCatalogRepository(cl *redis.Client, runID string, log *slog.Logger) *catalogRepository {
	return &catalogRepository{
		cl:    cl,
		runID: runID,
		log:   log.With(slog.String("item", "CatalogRepository")),
	}
}

// Publish writes manifests into the standby version and then makes it active,
// so readers never see a half written catalog.
func (r *catalogRepository) Publish(ctx context.Context, manifests []*entity.Manifest) error {
	verActive, verStandby, err := r.getVersions(ctx)
	if err != nil {
		r.log.Error("Cannot get standby data version", slog.Any("error", err))

		return fmt.Errorf("cannot get active version: %w", err)
	}
	r.log.Info("Publish catalog", slog.String("active_version", verActive), slog.String("standby_version", verStandby))

	if err := r.clearOldData(ctx, verStandby); err != nil {
		r.log.Error("Cannot clear old data", slog.String("version", verStandby), slog.Any("error", err))

		return fmt.Errorf("cannot clear old data: %w", err)
	}

	if err := r.saveNewData(ctx, verStandby, manifests); err != nil {
		r.log.Error("Cannot save new data", slog.String("version", verStandby), slog.Any("error", err))

		return fmt.Errorf("cannot save new data: %w", err)
	}

	if _, err := r.cl.Set(ctx, getKey(KeyActiveVersion), verStandby, 0).Result(); err != nil {
		r.log.Error("Cannot switch to new version", slog.String("version", verStandby), slog.Any("error", err))

		return fmt.Errorf("cannot switch to new version: %w", err)
	}

	return nil
}

func (r *catalogRepository) saveNewData(ctx context.Context, ver string, manifests []*entity.Manifest) error {
	log := r.log.With(slog.String("op", "saveNewData"), slog.String("version", ver))

	doc, err := scatalog.Encode(manifests)
	if err != nil {
		return err
	}

	pipe := r.cl.Pipeline()
	pipe.Set(ctx, getKey(KeyDocument, ver), doc, 0)
	pipe.Set(ctx, getKey(KeyHash, ver), util.GetIDFromBytes(doc), 0)
	pipe.Set(ctx, getKey(KeyRun, ver), r.runID, 0)

	keyIndex := getKey(KeyIndex, ver)
	for _, m := range manifests {
		name, ok := m.InternalName()
		if !ok {
			return common.ErrMissingInternalName
		}

		raw, err := m.MarshalJSON()
		if err != nil {
			return fmt.Errorf("cannot encode manifest %s: %w", name, err)
		}

		pipe.HSet(ctx, keyIndex, name, raw)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cannot save new data: %w", err)
	}

	log.Info("Saved", slog.Int("count", len(manifests)))

	return nil
}

func (r *catalogRepository) clearOldData(ctx context.Context, ver string) error {
	keys := make([]string, 0, len(ClearableKeys))
	for _, key := range ClearableKeys {
		keys = append(keys, getKey(key, ver))
	}

	count, err := r.cl.Del(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("error deleting keys: %w", err)
	}

	r.log.Info("Clear keys", slog.String("version", ver), slog.Int64("key_count", count))

	return nil
}

/*
getVersions return active and standby versions
*/
func (r *catalogRepository) getVersions(ctx context.Context) (string, string, error) {
	ver, err := r.getActiveVersion(ctx)
	if err != nil {
		return KeyEmpty, KeyEmpty, err
	}

	switch ver {
	case KeyVersion1:
		return KeyVersion1, KeyVersion2, nil
	case KeyVersion2:
		return KeyVersion2, KeyVersion1, nil
	}

	r.log.Info("Active version key is not found. Try to set new one", slog.String("version", KeyVersion1))

	if _, err = r.cl.Set(ctx, getKey(KeyActiveVersion), KeyVersion1, 0).Result(); err != nil {
		return KeyEmpty, KeyEmpty, fmt.Errorf("cannot set version key: %w", err)
	}

	return KeyVersion1, KeyVersion2, nil
}

func (r *catalogRepository) getActiveVersion(ctx context.Context) (string, error) {
	ver, err := r.cl.Get(ctx, getKey(KeyActiveVersion)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return KeyEmpty, fmt.Errorf("cannot get active version: %w", err)
	}

	return ver, nil
}

// GetDocument returns the active catalog document.
func (r *catalogRepository) GetDocument(ctx context.Context) (string, error) {
	return r.getActive(ctx, KeyDocument)
}

// GetHash returns the sha1 of the active catalog document.
func (r *catalogRepository) GetHash(ctx context.Context) (string, error) {
	return r.getActive(ctx, KeyHash)
}

func (r *catalogRepository) GetManifest(ctx context.Context, name string) (string, error) {
	ver, err := r.getActiveVersion(ctx)
	if err != nil {
		return "", err
	}

	str, err := r.cl.HGet(ctx, getKey(KeyIndex, ver), name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", common.ErrCatalogNotPublished
		}

		return "", fmt.Errorf("cannot get manifest %s: %w", name, err)
	}

	return str, nil
}

func (r *catalogRepository) getActive(ctx context.Context, key string) (string, error) {
	ver, err := r.getActiveVersion(ctx)
	if err != nil {
		return "", err
	}

	str, err := r.cl.Get(ctx, getKey(key, ver)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", common.ErrCatalogNotPublished
		}

		return "", err
	}

	return str, nil
}

func getKey(keys ...string) string {
	return strings.Join(append([]string{KeyPrefix}, keys...), KeySeparator)
}
