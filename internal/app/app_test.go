package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"baniusync/internal/config"
	"baniusync/internal/journal"
	"baniusync/internal/resolve"
	"baniusync/internal/storage"
)

type recordingClient struct {
	mu    *sync.Mutex
	keys  *[]string
	fails map[string]bool
}

func (c recordingClient) Save(ctx context.Context, key string, r io.Reader, size int64, opts storage.PutOptions) (storage.SaveResult, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return storage.SaveResult{}, err
	}
	if c.fails[key] {
		return storage.SaveResult{}, errors.New("503 service unavailable")
	}
	c.mu.Lock()
	*c.keys = append(*c.keys, key)
	c.mu.Unlock()
	return storage.SaveResult{Key: key, Size: size}, nil
}

type harness struct {
	fs    billy.Filesystem
	mu    sync.Mutex
	keys  []string
	fails map[string]bool
}

func (h *harness) factory(context.Context) (storage.Client, error) {
	return recordingClient{mu: &h.mu, keys: &h.keys, fails: h.fails}, nil
}

func (h *harness) sortedKeys() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := append([]string(nil), h.keys...)
	sort.Strings(out)
	return out
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fs := memfs.New()
	for _, p := range []string{
		"/home/me/site/index.html",
		"/home/me/site/css/main.css",
		"/home/me/notes.txt",
		"/other/notes.txt",
	} {
		require.NoError(t, fs.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, util.WriteFile(fs, p, []byte(p), 0o644))
	}
	return &harness{fs: fs, fails: map[string]bool{}}
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Storage.Endpoint = "localhost:9000"
	cfg.Credentials = config.Credentials{APIKey: "k", APISecret: "s", BucketName: "b"}
	cfg.Upload.ShowProgress = false
	cfg.Journal = filepath.Join(t.TempDir(), "journal.db")
	return cfg
}

func TestUploaderRun(t *testing.T) {
	h := newHarness(t)
	cfg := testConfig(t)
	cfg.Upload.Prefix = "cdn/"

	u, err := New(cfg, zap.NewNop(), WithFilesystem(h.fs), WithStorageFactory(h.factory))
	require.NoError(t, err)
	defer u.Close()

	report, err := u.Run(context.Background(), []resolve.Selection{
		{Path: "/home/me/site", Kind: resolve.Directory},
		{Path: "/home/me/notes.txt", Kind: resolve.File},
		{Path: "/other/notes.txt", Kind: resolve.File},
	})
	require.NoError(t, err)

	// the two notes.txt collide; the later selection wins
	assert.Equal(t, 3, report.Enqueued)
	assert.Equal(t, 3, report.Completed)
	assert.Equal(t, []string{"cdn/notes.txt", "cdn/site/css/main.css", "cdn/site/index.html"}, h.sortedKeys())

	records, err := u.journal.ListSession(u.Session())
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, rec := range records {
		if rec.Filekey == "notes.txt" {
			assert.Equal(t, "/other/notes.txt", rec.LocalPath)
		}
	}
}

func TestUploaderPartialFailureIsOnlyACount(t *testing.T) {
	h := newHarness(t)
	h.fails["site/index.html"] = true
	cfg := testConfig(t)
	core, logs := observer.New(zap.InfoLevel)

	u, err := New(cfg, zap.New(core), WithFilesystem(h.fs), WithStorageFactory(h.factory))
	require.NoError(t, err)
	defer u.Close()

	report, err := u.Run(context.Background(), []resolve.Selection{
		{Path: "/home/me/site", Kind: resolve.Directory},
		{Path: "/home/me/notes.txt", Kind: resolve.File},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Enqueued)
	assert.Equal(t, 2, report.Completed)
	assert.Equal(t, 1, report.WorkersStopped)
	assert.NotContains(t, u.Completed(), "site/index.html")

	summary := logs.FilterMessage("Upload finished").All()
	require.Len(t, summary, 1)
	assert.EqualValues(t, 1, summary[0].ContextMap()["failed"])
}

func TestUploaderRunsWithoutJournal(t *testing.T) {
	h := newHarness(t)
	cfg := testConfig(t)
	cfg.Journal = filepath.Join(t.TempDir(), "missing", "baniusync.db")
	core, logs := observer.New(zap.WarnLevel)

	u, err := New(cfg, zap.New(core), WithFilesystem(h.fs), WithStorageFactory(h.factory))
	require.NoError(t, err)
	defer u.Close()
	assert.Nil(t, u.journal)
	assert.Equal(t, 1, logs.FilterMessage("Journal unavailable, uploads will not be recorded").Len())

	report, err := u.Run(context.Background(), []resolve.Selection{{Path: "/home/me/site", Kind: resolve.Directory}})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Completed)
	assert.Equal(t, []string{"site/css/main.css", "site/index.html"}, h.sortedKeys())
}

func TestUploaderCloseStopsMetricsServer(t *testing.T) {
	h := newHarness(t)
	cfg := testConfig(t)
	cfg.MetricsAddr = "127.0.0.1:0"

	u, err := New(cfg, zap.NewNop(), WithFilesystem(h.fs), WithStorageFactory(h.factory))
	require.NoError(t, err)

	_, err = u.Run(context.Background(), []resolve.Selection{{Path: "/home/me/notes.txt", Kind: resolve.File}})
	require.NoError(t, err)
	srv := u.server
	require.NotNil(t, srv)

	require.NoError(t, u.Close())
	assert.Nil(t, u.server)
	assert.ErrorIs(t, srv.ListenAndServe(), http.ErrServerClosed)
}

func TestUploaderValidationBeforeQueueing(t *testing.T) {
	h := newHarness(t)
	cfg := testConfig(t)
	cfg.Credentials.APISecret = ""

	u, err := New(cfg, zap.NewNop(), WithFilesystem(h.fs), WithStorageFactory(h.factory))
	require.NoError(t, err)
	defer u.Close()

	_, err = u.Run(context.Background(), []resolve.Selection{{Path: "/home/me/notes.txt", Kind: resolve.File}})
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingField)
	assert.Empty(t, h.sortedKeys())
}

func TestUploaderNoSelection(t *testing.T) {
	h := newHarness(t)
	u, err := New(testConfig(t), zap.NewNop(), WithFilesystem(h.fs), WithStorageFactory(h.factory))
	require.NoError(t, err)
	defer u.Close()

	_, err = u.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoSelection)
}

func TestUploaderDryRun(t *testing.T) {
	h := newHarness(t)
	cfg := testConfig(t)
	cfg.Upload.DryRun = true

	u, err := New(cfg, zap.NewNop(), WithFilesystem(h.fs), WithStorageFactory(h.factory))
	require.NoError(t, err)
	defer u.Close()

	report, err := u.Run(context.Background(), []resolve.Selection{{Path: "/home/me/site", Kind: resolve.Directory}})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Enqueued)
	assert.Equal(t, 0, report.Completed)
	assert.Empty(t, h.sortedKeys())
}

func TestUploaderClearStartsNewSession(t *testing.T) {
	h := newHarness(t)
	store, err := journal.NewSQLiteStore(filepath.Join(t.TempDir(), "j.db"))
	require.NoError(t, err)

	u, err := New(testConfig(t), zap.NewNop(), WithFilesystem(h.fs), WithStorageFactory(h.factory), WithJournal(store))
	require.NoError(t, err)
	defer u.Close()

	_, err = u.Run(context.Background(), []resolve.Selection{{Path: "/home/me/notes.txt", Kind: resolve.File}})
	require.NoError(t, err)
	first := u.Session()
	require.Len(t, u.Completed(), 1)

	u.Clear()
	assert.Empty(t, u.Completed())
	assert.NotEqual(t, first, u.Session())
}
