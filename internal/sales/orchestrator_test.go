package sales

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farxc/accurate-sales-etl/internal/accurate"
	"github.com/farxc/accurate-sales-etl/internal/credentials"
	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
	"github.com/farxc/accurate-sales-etl/internal/logger"
	"github.com/farxc/accurate-sales-etl/internal/sales/fetch"
	"github.com/farxc/accurate-sales-etl/internal/sales/files"
	"github.com/farxc/accurate-sales-etl/internal/sales/types"
	"github.com/farxc/accurate-sales-etl/internal/store"
	"github.com/farxc/accurate-sales-etl/internal/testutil"
)

// fakeAccurate serves the OAuth, session, list and detail endpoints.
type fakeAccurate struct {
	mu          sync.Mutex
	tokenStatus int
	invoices    []string
	hits        map[string]int
	sessions    []string
}

func newFakeAccurate() *fakeAccurate {
	return &fakeAccurate{tokenStatus: http.StatusOK, hits: map[string]int{}}
}

func (f *fakeAccurate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[r.URL.Path]++

	switch r.URL.Path {
	case "/oauth/token":
		if f.tokenStatus != http.StatusOK {
			w.WriteHeader(f.tokenStatus)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
			return
		}
		fmt.Fprint(w, `{"access_token":"access-new","refresh_token":"refresh-new","expires_in":1296000}`)
	case "/api/db-refresh-session.do":
		fmt.Fprint(w, `{"s":true,"d":{"session":"session-new"}}`)
	case "/accurate/api/sales-invoice/list.do":
		f.sessions = append(f.sessions, r.Header.Get("X-Session-ID"))
		if r.URL.Query().Get("sp.page") != "1" || len(f.invoices) == 0 {
			fmt.Fprint(w, `{"s":true,"d":[]}`)
			return
		}
		fmt.Fprint(w, `{"s":true,"d":[`)
		for i := range f.invoices {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"id":%d}`, i+1)
		}
		fmt.Fprint(w, `]}`)
	case "/accurate/api/sales-invoice/detail.do":
		var id int
		fmt.Sscanf(r.URL.Query().Get("id"), "%d", &id)
		fmt.Fprintf(w, `{"s":true,"d":%s}`, f.invoices[id-1])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeAccurate) hitCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

type fixture struct {
	api      *fakeAccurate
	stores   *testutil.Stores
	pipeline *Pipeline
	dir      string
	window   types.Window
	// sleep replaces the fetch pauses when set.
	sleep fetch.SleepFunc
}

// ctxHistoryStore fails like a database driver once its context is done.
type ctxHistoryStore struct {
	*testutil.InMemoryIngestionHistoryStore
}

func (s ctxHistoryStore) InsertIngestionHistory(ctx context.Context, history *store.IngestionHistory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.InMemoryIngestionHistoryStore.InsertIngestionHistory(ctx, history)
}

func (s ctxHistoryStore) UpdateIngestionStatus(ctx context.Context, id int64, outcome store.IngestionOutcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.InMemoryIngestionHistoryStore.UpdateIngestionStatus(ctx, id, outcome)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	api := newFakeAccurate()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	stores := testutil.NewStores(map[string]string{
		credentials.AccessTokenKey:  "access-old",
		credentials.RefreshTokenKey: "refresh-old",
		credentials.DBSessionKey:    "session-old",
	})

	policy := accurate.RetryPolicy{MaxRetries: 1, InitialInterval: time.Millisecond}
	client := accurate.NewClient(accurate.Options{AuthRetry: policy, DataRetry: policy}, logger.NewNop())

	dir := t.TempDir()
	f := &fixture{api: api, stores: stores, dir: dir}
	pipeline := NewPipeline(client, stores.Storage(), stores.Credentials, Config{
		StagingDir: dir,
		Static: credentials.Static{
			ClientID:     "client",
			ClientSecret: "secret",
			APIBaseURL:   server.URL,
			DatabaseID:   "42",
		},
		ChunkSize: 2,
		Fetch: fetch.Options{
			Sleep: func(ctx context.Context, d time.Duration) error {
				if f.sleep != nil {
					return f.sleep(ctx, d)
				}
				return nil
			},
		},
	}, logger.NewNop())
	pipeline.now = func() time.Time { return time.Date(2024, 1, 8, 2, 0, 0, 0, time.Local) }
	pipeline.newRunID = func() uuid.UUID { return uuid.MustParse("6f1c2d7e-4b7a-4a44-9a55-0d1f5cbe9e10") }

	window, err := types.ParseWindow("2024-01-01", "2024-01-07")
	require.NoError(t, err)

	f.pipeline = pipeline
	f.window = window
	return f
}

func TestRun_AllStages(t *testing.T) {
	f := newFixture(t)
	f.api.invoices = []string{
		`{"id":1,"number":"SI-1","transDate":"02/01/2024","dueDate":"01/02/2024","shipDate":"03/01/2024","customer":{"name":"PT A"},"detailItem":[{"id":11,"quantity":2},{"id":12,"quantity":1}]}`,
		`{"id":2,"number":"SI-2","transDate":"05/01/2024","detailItem":[{"id":21}]}`,
		`{"id":3,"number":"SI-3","transDate":"06/01/2024","detailItem":[]}`,
	}

	report, err := f.pipeline.Run(context.Background(), RunRequest{Window: f.window, Stage: types.StageAll, Trigger: store.TriggerTypeScheduled})

	require.NoError(t, err)
	require.Len(t, report.Stages, 3)
	assert.Equal(t, types.Counts{Invoices: 3, Details: 3}, report.Stages[1].Counts)
	assert.Equal(t, types.Counts{Invoices: 3, Details: 3}, report.Stages[2].Counts)

	assert.Equal(t, "refresh-new", f.stores.Credentials.Value(credentials.RefreshTokenKey))
	assert.Equal(t, "session-new", f.stores.Credentials.Value(credentials.DBSessionKey))
	assert.Equal(t, []string{"session-new", "session-new"}, f.api.sessions)
	assert.Equal(t, 3, f.api.hitCount("/accurate/api/sales-invoice/detail.do"))

	assert.FileExists(t, files.HeadersPath(f.dir, f.window))
	assert.FileExists(t, files.DetailsPath(f.dir, f.window))

	assert.Len(t, f.stores.Invoices.All(), 3)
	assert.Len(t, f.stores.Invoices.Batches(), 2)
	assert.Len(t, f.stores.Details.All(), 3)

	history := f.stores.History.All()
	require.Len(t, history, 3)
	for i, stage := range []string{"refresh", "extract", "load"} {
		assert.Equal(t, stage, history[i].Stage)
		assert.Equal(t, store.StatusSuccess, history[i].Status)
		assert.Equal(t, store.TriggerTypeScheduled, history[i].TriggerType)
		assert.Equal(t, report.RunID, history[i].RunID)
		assert.NotNil(t, history[i].FinishedAt)
	}
	assert.Equal(t, 3, history[2].DetailsCount)
}

func TestRun_TokenRejectedAbortsBeforeExtraction(t *testing.T) {
	f := newFixture(t)
	f.api.tokenStatus = http.StatusUnauthorized
	f.api.invoices = []string{`{"id":1}`}

	report, err := f.pipeline.Run(context.Background(), RunRequest{Window: f.window, Stage: types.StageAll})

	require.Error(t, err)
	assert.True(t, ierr.IsAuthentication(err))
	require.Len(t, report.Stages, 1)

	assert.Zero(t, f.api.hitCount("/accurate/api/sales-invoice/list.do"))
	assert.Zero(t, f.api.hitCount("/accurate/api/sales-invoice/detail.do"))
	assert.Empty(t, f.stores.Credentials.Sets())
	assert.NoFileExists(t, files.HeadersPath(f.dir, f.window))

	history := f.stores.History.All()
	require.Len(t, history, 1)
	assert.Equal(t, store.StatusFailure, history[0].Status)
	assert.Equal(t, store.TriggerTypeManual, history[0].TriggerType)
	require.NotNil(t, history[0].ErrorMessage)
	assert.Contains(t, *history[0].ErrorMessage, "401")
}

func TestRun_EmptyWindow(t *testing.T) {
	f := newFixture(t)

	report, err := f.pipeline.Run(context.Background(), RunRequest{Window: f.window, Stage: types.StageAll})

	require.NoError(t, err)
	assert.Equal(t, types.Counts{}, report.Stages[1].Counts)
	assert.Equal(t, 1, f.api.hitCount("/accurate/api/sales-invoice/list.do"))
	assert.Zero(t, f.api.hitCount("/accurate/api/sales-invoice/detail.do"))

	headers, err := files.ReadHeaders(f.dir, f.window)
	require.NoError(t, err)
	assert.Empty(t, headers)
	details, err := files.ReadDetails(f.dir, f.window)
	require.NoError(t, err)
	assert.Empty(t, details)

	assert.Empty(t, f.stores.Invoices.Batches())
	assert.Empty(t, f.stores.Details.Batches())
}

func TestRun_ExtractAloneUsesStoredCredentials(t *testing.T) {
	f := newFixture(t)
	f.api.invoices = []string{`{"id":1,"detailItem":[{"id":5}]}`}

	report, err := f.pipeline.Run(context.Background(), RunRequest{Window: f.window, Stage: types.StageExtract})

	require.NoError(t, err)
	require.Len(t, report.Stages, 1)
	assert.Zero(t, f.api.hitCount("/oauth/token"))
	assert.Equal(t, []string{"session-old", "session-old"}, f.api.sessions)
	assert.Empty(t, f.stores.Invoices.Batches())
}

func TestRun_LoadWithoutStagedFiles(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipeline.Run(context.Background(), RunRequest{Window: f.window, Stage: types.StageLoad})

	require.Error(t, err)
	assert.True(t, ierr.IsNotFound(err))
	history := f.stores.History.All()
	require.Len(t, history, 1)
	assert.Equal(t, store.StatusFailure, history[0].Status)
}

func TestRun_RejectsConcurrentRun(t *testing.T) {
	f := newFixture(t)
	held := flock.New(filepath.Join(f.dir, lockFileName))
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()

	_, err = f.pipeline.Run(context.Background(), RunRequest{Window: f.window, Stage: types.StageAll})

	require.Error(t, err)
	assert.True(t, ierr.Is(err, ierr.ErrAlreadyRunning))
	assert.Empty(t, f.stores.History.All())
}

func TestRun_InvalidRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.pipeline.Run(context.Background(), RunRequest{Window: f.window, Stage: "transform"})
	assert.True(t, ierr.IsValidation(err))

	_, err = f.pipeline.Run(context.Background(), RunRequest{Window: types.Window{Start: f.window.End, End: f.window.Start}, Stage: types.StageAll})
	assert.True(t, ierr.IsValidation(err))

	assert.Empty(t, f.stores.History.All())
}

func TestRun_CancelledStageStillClosesHistory(t *testing.T) {
	f := newFixture(t)
	f.api.invoices = []string{`{"id":1,"detailItem":[{"id":5}]}`}
	f.pipeline.storage.IngestionHistory = ctxHistoryStore{f.stores.History}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := f.pipeline.Run(ctx, RunRequest{Window: f.window, Stage: types.StageExtract})

	require.ErrorIs(t, err, context.Canceled)
	history := f.stores.History.All()
	require.Len(t, history, 1)
	assert.Equal(t, store.StatusFailure, history[0].Status)
	assert.NotNil(t, history[0].FinishedAt)
	require.NotNil(t, history[0].ErrorMessage)
	assert.Contains(t, *history[0].ErrorMessage, "canceled")
}
