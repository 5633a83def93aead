package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-jobitems/config"
	"github.com/target/mmk-jobitems/internal/domain/model"
	"github.com/target/mmk-jobitems/internal/testutil"
)

func newTestCommandContext(t *testing.T, baseURL string) (*commandContext, *bytes.Buffer) {
	t.Helper()
	cfg := config.AppConfig{Services: "http"}
	cfg.Sanitize()
	cfg.JobItemAPI.BaseURL = baseURL

	var out bytes.Buffer
	return &commandContext{
		Ctx:    context.Background(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config: cfg,
		Out:    &out,
	}, &out
}

func TestParseResolveFlags(t *testing.T) {
	opts, err := parseResolveFlags("resolve-many", []string{"-json", "-detailed", "-timeout", "5s", "3", "1", "3"}, true)
	require.NoError(t, err)
	assert.True(t, opts.JSON)
	assert.True(t, opts.Detailed)
	assert.Equal(t, 5*time.Second, opts.Timeout)
	assert.Equal(t, []model.JobItemID{3, 1, 3}, opts.IDs)

	_, err = parseResolveFlags("resolve", []string{"-detailed", "1"}, false)
	require.Error(t, err)

	_, err = parseResolveFlags("resolve", nil, false)
	require.Error(t, err)

	_, err = parseResolveFlags("resolve", []string{"abc"}, false)
	require.Error(t, err)

	_, err = parseResolveFlags("resolve", []string{"-timeout", "0s", "1"}, false)
	require.Error(t, err)
}

func TestRunResolve_JSON(t *testing.T) {
	api := testutil.NewFakeJobItemAPI(testutil.NewJobItem(12).WithTitle("Site Reliability").Build())
	defer api.Close()

	cmdCtx, out := newTestCommandContext(t, api.URL)
	require.NoError(t, runResolve(cmdCtx, []string{"-json", "12"}))

	var res model.JobItemResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, model.JobItemStatusSuccess, res.Status)
	require.NotNil(t, res.JobItem)
	assert.Equal(t, "Site Reliability", res.JobItem.Title)
}

func TestRunResolve_FailureIsAnError(t *testing.T) {
	api := testutil.NewFakeJobItemAPI()
	defer api.Close()

	cmdCtx, out := newTestCommandContext(t, api.URL)
	err := runResolve(cmdCtx, []string{"99"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
	assert.Contains(t, out.String(), "error")
}

func TestRunResolveMany_OmitsFailures(t *testing.T) {
	api := testutil.NewFakeJobItemAPI(
		testutil.NewJobItem(1).WithCompany("Acme").Build(),
		testutil.NewJobItem(2).WithCompany("Globex").Build(),
	)
	defer api.Close()
	api.FailWith(2, http.StatusServiceUnavailable)

	cmdCtx, out := newTestCommandContext(t, api.URL)
	require.NoError(t, runResolveMany(cmdCtx, []string{"-json", "2", "1"}))

	var state model.JobItemsState
	require.NoError(t, json.Unmarshal(out.Bytes(), &state))
	assert.False(t, state.IsLoading)
	require.Len(t, state.JobItems, 1)
	assert.Equal(t, "Acme", state.JobItems[0].Company)
}

func TestRunResolveMany_DetailedTable(t *testing.T) {
	api := testutil.NewFakeJobItemAPI(testutil.NewJobItem(1).WithTitle("Gopher").Build())
	defer api.Close()

	cmdCtx, out := newTestCommandContext(t, api.URL)
	require.NoError(t, runResolveMany(cmdCtx, []string{"-detailed", "1", "5"}))

	table := out.String()
	assert.Contains(t, table, "STATUS")
	assert.Contains(t, table, "success")
	assert.Contains(t, table, "Gopher")
	assert.Contains(t, table, "error")
}

func TestRunEvict_RequiresRedisTierOrServer(t *testing.T) {
	cmdCtx, _ := newTestCommandContext(t, "http://127.0.0.1:1")
	err := runEvict(cmdCtx, []string{"1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-server")
}

func TestRunEvict_InvalidatesOnServer(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":0,"cached":true}`))
	}))
	defer srv.Close()

	cmdCtx, out := newTestCommandContext(t, "http://127.0.0.1:1")
	require.NoError(t, runEvict(cmdCtx, []string{"-server", srv.URL + "/", "3", "5"}))

	mu.Lock()
	assert.Equal(t, []string{"/api/job-items/3/invalidate", "/api/job-items/5/invalidate"}, paths)
	mu.Unlock()
	assert.Contains(t, out.String(), "invalidated 3")
	assert.Contains(t, out.String(), "cached=true")
}

func TestRunEvict_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cmdCtx, _ := newTestCommandContext(t, "http://127.0.0.1:1")
	err := runEvict(cmdCtx, []string{"-server", srv.URL, "3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf))
	assert.Contains(t, buf.String(), "resolve-many")
	assert.Contains(t, buf.String(), "evict")
}
