package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/target/mmk-jobitems/internal/domain/model"
)

// FakeJobItemAPI is an httptest server that answers GET /{id} like the remote job item API.
// Unknown ids get a 404 with a description body.
type FakeJobItemAPI struct {
	*httptest.Server

	mu    sync.Mutex
	items map[model.JobItemID]model.JobItemExpanded
	fails map[model.JobItemID]int
	hits  map[model.JobItemID]int
}

// NewFakeJobItemAPI starts a fake API serving items. Callers must Close it.
func NewFakeJobItemAPI(items ...model.JobItemExpanded) *FakeJobItemAPI {
	f := &FakeJobItemAPI{
		items: make(map[model.JobItemID]model.JobItemExpanded, len(items)),
		fails: make(map[model.JobItemID]int),
		hits:  make(map[model.JobItemID]int),
	}
	for _, it := range items {
		f.items[it.ID] = it
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	return f
}

// FailWith makes every request for id answer with status.
func (f *FakeJobItemAPI) FailWith(id model.JobItemID, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails[id] = status
}

// Hits returns how many requests id received.
func (f *FakeJobItemAPI) Hits(id model.JobItemID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[id]
}

func (f *FakeJobItemAPI) serve(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"description": "Invalid job item id"})
		return
	}
	id := model.JobItemID(n)

	f.mu.Lock()
	f.hits[id]++
	status, failing := f.fails[id]
	item, found := f.items[id]
	f.mu.Unlock()

	switch {
	case failing:
		writeJSON(w, status, map[string]string{"description": http.StatusText(status)})
	case !found:
		writeJSON(w, http.StatusNotFound, map[string]string{"description": "Job item with that id does not exist"})
	default:
		writeJSON(w, http.StatusOK, model.JobItemEnvelope{Public: true, JobItem: item})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
