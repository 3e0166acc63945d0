package catalog

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jgivc/pluginmaster/internal/common"
	"github.com/jgivc/pluginmaster/internal/entity"
	"github.com/jgivc/pluginmaster/internal/util"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestGetKey(t *testing.T) {
	require.Equal(t, "pm:av", getKey(KeyActiveVersion))
	require.Equal(t, "pm:ix:v2", getKey(KeyIndex, KeyVersion2))
}

// checkTestcontainersAvailable safely checks if testcontainers can be used.
func checkTestcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()

	return true
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if !checkTestcontainersAvailable() {
		t.Skip("skipping redis integration test: testcontainers provider not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	cl := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() {
		_ = cl.Close()
	})
	require.NoError(t, cl.Ping(ctx).Err())

	return cl
}

func manifests(t *testing.T, docs ...string) []*entity.Manifest {
	t.Helper()

	result := make([]*entity.Manifest, 0, len(docs))
	for _, doc := range docs {
		m := entity.NewManifest()
		require.NoError(t, json.Unmarshal([]byte(doc), m))
		result = append(result, m)
	}

	return result
}

func TestPublish_Integration(t *testing.T) {
	cl := newRedis(t)
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	repo := NewCatalogRepository(cl, "run-1", log)

	_, err := repo.GetDocument(ctx)
	require.ErrorIs(t, err, common.ErrCatalogNotPublished)

	require.NoError(t, repo.Publish(ctx, manifests(t,
		`{"InternalName":"Foo","DownloadCount":0}`,
		`{"InternalName":"Bar","DownloadCount":0}`,
	)))

	ver, err := cl.Get(ctx, getKey(KeyActiveVersion)).Result()
	require.NoError(t, err)
	require.Equal(t, KeyVersion2, ver)

	doc, err := repo.GetDocument(ctx)
	require.NoError(t, err)
	require.JSONEq(t, `[{"InternalName":"Foo","DownloadCount":0},{"InternalName":"Bar","DownloadCount":0}]`, doc)

	hash, err := repo.GetHash(ctx)
	require.NoError(t, err)
	require.Equal(t, util.GetIDFromBytes([]byte(doc)), hash)

	foo, err := repo.GetManifest(ctx, "Foo")
	require.NoError(t, err)
	require.JSONEq(t, `{"InternalName":"Foo","DownloadCount":0}`, foo)

	// Second publish swaps back to v1 and drops entries that are gone.
	repo = NewCatalogRepository(cl, "run-2", log)
	require.NoError(t, repo.Publish(ctx, manifests(t, `{"InternalName":"Foo","DownloadCount":0}`)))

	ver, err = cl.Get(ctx, getKey(KeyActiveVersion)).Result()
	require.NoError(t, err)
	require.Equal(t, KeyVersion1, ver)

	_, err = repo.GetManifest(ctx, "Bar")
	require.ErrorIs(t, err, common.ErrCatalogNotPublished)

	run, err := cl.Get(ctx, getKey(KeyRun, KeyVersion1)).Result()
	require.NoError(t, err)
	require.Equal(t, "run-2", run)
}
