package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeJobItemAPI(t *testing.T) {
	api := NewFakeJobItemAPI(NewJobItem(1).WithTitle("Gopher").Build())
	defer api.Close()

	get := func(path string) int {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, api.URL+path, nil)
		require.NoError(t, err)
		resp, err := api.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, get("/1"))
	assert.Equal(t, http.StatusNotFound, get("/2"))
	assert.Equal(t, http.StatusBadRequest, get("/abc"))

	api.FailWith(1, http.StatusBadGateway)
	assert.Equal(t, http.StatusBadGateway, get("/1"))
	assert.Equal(t, 2, api.Hits(1))
}

func TestJobItemBuilder(t *testing.T) {
	env := NewJobItem(5).WithCompany("Initech").Envelope()
	assert.True(t, env.Public)
	assert.Equal(t, "Initech", env.JobItem.Company)
	assert.Equal(t, "Job 5", env.JobItem.Title)
}

func TestTestRedisOptions(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		wantAddr string
		wantDB   int
	}{
		{name: "unset", uri: "", wantAddr: defaultTestRedisAddr},
		{name: "host port", uri: " cache:6380 ", wantAddr: "cache:6380"},
		{name: "url with db", uri: "redis://cache:6379/3", wantAddr: "cache:6379", wantDB: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_REDIS_URI", tt.uri)
			opts, err := testRedisOptions()
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, opts.Addr)
			assert.Equal(t, tt.wantDB, opts.DB)
		})
	}

	t.Setenv("TEST_REDIS_URI", "redis://cache:6379/notadb")
	_, err := testRedisOptions()
	require.Error(t, err)
}

func TestSetupTestRedis_PurgesNamespace(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	var (
		prefix string
		written  *TestRedis
	)
	t.Run("writer", func(t *testing.T) {
		tr := SetupTestRedis(t)
		prefix = tr.Prefix
		written = tr
		require.True(t, strings.HasPrefix(tr.Prefix, "jobitems-test:"))
		require.NoError(t, tr.Client.Set(context.Background(), tr.Key("a"), "1", time.Minute).Err())
		require.NoError(t, tr.Client.Set(context.Background(), tr.Key("b"), "2", time.Minute).Err())
	})
	if written == nil {
		t.Skip("redis not available")
	}

	reader := SetupTestRedis(t)
	assert.NotEqual(t, prefix, reader.Prefix)
	n, err := reader.Client.Exists(context.Background(), prefix+"a", prefix+"b").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}
