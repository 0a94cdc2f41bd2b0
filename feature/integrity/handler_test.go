package integrity

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"asset-cache/core/database"
	"asset-cache/core/manifest"
	"asset-cache/core/reconcile"
	"asset-cache/core/storage"
	"asset-cache/core/storage/mocks"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testCfg = storage.Config{Bucket: "test-bucket", PackagePrefix: "packages/"}

func objects(keys ...string) <-chan minio.ObjectInfo {
	objs := make([]minio.ObjectInfo, len(keys))
	for i, k := range keys {
		objs[i] = minio.ObjectInfo{Key: k, Size: 10}
	}
	return mocks.Listing(objs...)
}

func setupTestApp(t *testing.T, withManifests bool) (*fiber.App, *mocks.Client) {
	t.Helper()
	mockClient := new(mocks.Client)
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data", 0o755))

	opts := []Option{WithRoots(fs, map[string]string{"files.root": "/data", "files.local_root": "/resources"})}
	if withManifests {
		db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
		require.NoError(t, err)
		store := manifest.NewStore(db, zap.NewNop())
		ctx := context.Background()
		require.NoError(t, store.Migrate(ctx))
		require.NoError(t, store.PutManifest(ctx, manifest.PackageManifest{Name: "ui", Dependencies: []string{"fonts"}}))
		opts = append(opts, WithManifests(store, reconcile.New(store, mockClient, testCfg, 0, zap.NewNop())))
	}

	svc := NewService(mockClient, testCfg, zap.NewNop(), opts...)
	feature := NewFeature(svc)
	assert.Equal(t, "integrity", feature.Name())
	require.True(t, feature.IsEnabled())

	app := fiber.New()
	require.NoError(t, feature.Load(app))
	return app, mockClient
}

func decode(t *testing.T, app *fiber.App, path string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHandleStorageCheck(t *testing.T) {
	app, mockClient := setupTestApp(t, false)
	mockClient.On("BucketExists", mock.Anything, "test-bucket").Return(true, nil)
	mockClient.On("ListObjects", mock.Anything, "test-bucket", mock.Anything).Return(objects("packages/ui.pkg"))

	status, body := decode(t, app, "/integrity/storage")
	assert.Equal(t, 200, status)
	assert.Equal(t, true, body["has_packages"])
}

func TestHandleStorageCheck_Error(t *testing.T) {
	app, mockClient := setupTestApp(t, false)
	mockClient.On("BucketExists", mock.Anything, "test-bucket").Return(false, assert.AnError)

	status, body := decode(t, app, "/integrity/storage")
	assert.Equal(t, 500, status)
	assert.NotEmpty(t, body["error"])
}

func TestHandleRootsCheck(t *testing.T) {
	app, _ := setupTestApp(t, false)

	status, body := decode(t, app, "/integrity/roots")
	assert.Equal(t, 200, status)
	assert.Equal(t, []any{"files.local_root"}, body["missing"])
}

func TestHandleSchemaCheck(t *testing.T) {
	app, _ := setupTestApp(t, false)
	status, body := decode(t, app, "/integrity/schema")
	assert.Equal(t, 200, status)
	assert.Equal(t, false, body["enabled"])

	app, _ = setupTestApp(t, true)
	status, body = decode(t, app, "/integrity/schema")
	assert.Equal(t, 200, status)
	assert.Equal(t, true, body["enabled"])
	assert.Equal(t, true, body["matched"])
}

func TestHandlePackagesCheck(t *testing.T) {
	app, _ := setupTestApp(t, false)
	status, _ := decode(t, app, "/integrity/packages")
	assert.Equal(t, 503, status)

	app, mockClient := setupTestApp(t, true)
	mockClient.On("ListObjects", mock.Anything, "test-bucket", mock.Anything).Return(objects("packages/ui.pkg"))
	status, body := decode(t, app, "/integrity/packages")
	assert.Equal(t, 200, status)

	summary := body["summary"].(map[string]any)
	assert.Equal(t, float64(2), summary["total_packages"])
	assert.Equal(t, float64(1), summary["missing_archives"])
	assert.Equal(t, float64(1), summary["dangling_dependencies"])
}

func TestHandleIntegrityCheck(t *testing.T) {
	app, mockClient := setupTestApp(t, true)
	mockClient.On("BucketExists", mock.Anything, "test-bucket").Return(false, nil)
	mockClient.On("ListObjects", mock.Anything, "test-bucket", mock.Anything).Return(objects())

	status, body := decode(t, app, "/integrity")
	assert.Equal(t, 200, status)
	assert.Equal(t, "error", body["storage"].(map[string]any)["status"])
	assert.Equal(t, "checked", body["roots"].(map[string]any)["status"])
	assert.Equal(t, true, body["schema"].(map[string]any)["matched"])
	assert.Equal(t, float64(2), body["packages"].(map[string]any)["missing_archives"])
}

func TestFeature_Disabled(t *testing.T) {
	assert.False(t, NewFeature(nil).IsEnabled())
}
