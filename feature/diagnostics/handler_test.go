package diagnostics_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"asset-cache/core/resource"
	"asset-cache/core/sweeper"
	"asset-cache/feature/diagnostics"
	"asset-cache/feature/files"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticCatalog map[string]resource.Key

func (c staticCatalog) LookupContentID(_ context.Context, id string) (resource.Key, error) {
	key, ok := c[id]
	if !ok {
		return resource.Key{}, assert.AnError
	}
	key.ContentID = id
	return key, nil
}

type staticJobs []sweeper.JobInfo

func (j staticJobs) Jobs() []sweeper.JobInfo { return j }

func setupTestApp(t *testing.T, catalog staticCatalog) (*fiber.App, *resource.Engine) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/config/app.json", []byte(`{"a":1}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/data/readme.txt", []byte("hello"), 0o644))

	e := resource.NewEngine(resource.Config{}, zap.NewNop(), nil)
	cfg := files.Config{Root: "/data", LocalRoot: "/res", MaxBytes: 1 << 20}
	require.NoError(t, files.RegisterFs(e.Factory, fs, cfg, zap.NewNop()))

	jobs := staticJobs{{Name: sweeper.JobCleanup, Interval: 30 * time.Second}}
	var svc *diagnostics.Service
	if catalog != nil {
		svc = diagnostics.NewService(e, catalog, jobs, zap.NewNop())
	} else {
		svc = diagnostics.NewService(e, nil, jobs, zap.NewNop())
	}

	app := fiber.New()
	feat := diagnostics.NewFeature(svc, true)
	require.True(t, feat.IsEnabled())
	require.NoError(t, feat.Load(app))
	return app, e
}

func preload(t *testing.T, app *fiber.App, body any) (*http.Response, diagnostics.PreloadResult) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/cache/preload", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	var result diagnostics.PreloadResult
	if resp.StatusCode < 400 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	}
	return resp, result
}

func TestHandlePreload(t *testing.T) {
	app, e := setupTestApp(t, nil)

	resp, result := preload(t, app, diagnostics.PreloadRequest{
		Keys:  []string{"raw_file:config/app.json"},
		Paths: []string{"./readme.txt", "config/app.json"},
	})
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 2, result.Tracked)
	assert.ElementsMatch(t, []string{"raw_file:config/app.json", "raw_file:readme.txt"}, result.Ready)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 1.0, result.Progress)

	src, ok := e.Get(resource.NewKey(resource.CategoryRawFile, "", "config/app.json"))
	require.True(t, ok, "preloaded resources stay warm")
	assert.True(t, src.IsReady())
	assert.False(t, src.IsHeld())
}

func TestHandlePreload_Unload(t *testing.T) {
	app, e := setupTestApp(t, nil)

	resp, result := preload(t, app, diagnostics.PreloadRequest{
		Keys:   []string{"raw_file:readme.txt"},
		Unload: true,
	})
	assert.Equal(t, 200, resp.StatusCode)
	assert.Len(t, result.Ready, 1)

	_, ok := e.Get(resource.NewKey(resource.CategoryRawFile, "", "readme.txt"))
	assert.False(t, ok)
}

func TestHandlePreload_PartialFailure(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	resp, result := preload(t, app, diagnostics.PreloadRequest{
		Keys:       []string{"raw_file:readme.txt", "raw_file:missing.txt", "remote_image:http://x/a.png"},
		ContentIDs: []string{"c-1"},
	})
	assert.Equal(t, fiber.StatusMultiStatus, resp.StatusCode)
	assert.Equal(t, []string{"raw_file:readme.txt"}, result.Ready)
	assert.Len(t, result.Errors, 3)
}

func TestHandlePreload_ContentID(t *testing.T) {
	catalog := staticCatalog{"c-1": resource.NewKey(resource.CategoryRawFile, "", "readme.txt")}
	app, _ := setupTestApp(t, catalog)

	resp, result := preload(t, app, diagnostics.PreloadRequest{ContentIDs: []string{"c-1"}})
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, []string{"raw_file:readme.txt"}, result.Ready)
}

func TestHandlePreload_BadRequest(t *testing.T) {
	app, _ := setupTestApp(t, nil)

	resp, _ := preload(t, app, diagnostics.PreloadRequest{})
	assert.Equal(t, 400, resp.StatusCode)

	resp, _ = preload(t, app, diagnostics.PreloadRequest{Keys: []string{"no-category"}})
	assert.Equal(t, 400, resp.StatusCode)

	req := httptest.NewRequest("POST", "/cache/preload", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	r, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, r.StatusCode)
}

func TestHandleStats(t *testing.T) {
	app, _ := setupTestApp(t, nil)
	preload(t, app, diagnostics.PreloadRequest{Keys: []string{"raw_file:readme.txt"}})

	resp, err := app.Test(httptest.NewRequest("GET", "/cache/stats", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var report diagnostics.StatsReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, 1, report.Table.Entries)
	assert.Equal(t, 1, report.Table.Ready)
	assert.Equal(t, 1, report.Table.Partitions["file"].Entries)
	assert.Equal(t, 1, report.Arenas["raw_file"].Live)
	assert.Equal(t, []string{"raw_file", "local_resource"}, report.Categories)
	require.Len(t, report.Jobs, 1)
	assert.Equal(t, sweeper.JobCleanup, report.Jobs[0].Name)
}

func TestHandleSnapshotAndLeaks(t *testing.T) {
	app, _ := setupTestApp(t, nil)
	preload(t, app, diagnostics.PreloadRequest{Keys: []string{"raw_file:readme.txt", "raw_file:config/app.json"}})

	resp, err := app.Test(httptest.NewRequest("GET", "/cache/snapshot", nil))
	require.NoError(t, err)
	var entries []resource.EntryInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "raw_file:config/app.json", entries[0].Key)
	assert.Equal(t, "ready", entries[0].State)
	assert.Zero(t, entries[0].RefCount)

	resp, err = app.Test(httptest.NewRequest("GET", "/cache/snapshot?limit=1", nil))
	require.NoError(t, err)
	entries = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "raw_file:config/app.json", entries[0].Key)

	resp, err = app.Test(httptest.NewRequest("GET", "/cache/snapshot?category=remote_image", nil))
	require.NoError(t, err)
	entries = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	assert.Empty(t, entries)

	resp, err = app.Test(httptest.NewRequest("GET", "/cache/snapshot?category=bogus", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/cache/leaks", nil))
	require.NoError(t, err)
	var report resource.LeakReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, 2, report.Entries)
	assert.False(t, report.Suspicious())
}

func TestHandleCleanup(t *testing.T) {
	app, e := setupTestApp(t, nil)
	ctx := context.Background()

	recycle := func(name string) {
		src, err := e.Resolve(ctx, resource.NewKey(resource.CategoryRawFile, "", name))
		require.NoError(t, err)
		require.True(t, src.TryAutoPushedToPool())
	}
	cleanup := func(target string) int {
		resp, err := app.Test(httptest.NewRequest("POST", target, nil))
		require.NoError(t, err)
		require.Equal(t, 200, resp.StatusCode)
		var body map[string]int
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body["removed"]
	}

	recycle("readme.txt")
	assert.Equal(t, 1, cleanup("/cache/cleanup"))

	recycle("config/app.json")
	assert.Equal(t, 0, cleanup("/cache/cleanup"), "throttled within the cleanup interval")
	assert.Equal(t, 1, cleanup("/cache/cleanup?force=yes"))
	assert.Zero(t, e.Table.Statistics().Entries)
}

func TestFeature_Disabled(t *testing.T) {
	f := diagnostics.NewFeature(nil, true)
	assert.False(t, f.IsEnabled())
	assert.Equal(t, "diagnostics", f.Name())
}
