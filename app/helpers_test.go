package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pubky-app/social-core/homeserver"
	"github.com/pubky-app/social-core/model"
	"github.com/pubky-app/social-core/nexus"
	"github.com/pubky-app/social-core/utils"
	"github.com/stretchr/testify/require"
)

// fakeNexus serves the subset of the index API the core consumes and counts
// every call per endpoint so tests can assert on network behavior.
type fakeNexus struct {
	mu sync.Mutex

	posts map[string]nexus.PostView
	users map[string]nexus.UserView

	// streamPages maps a filter-key-ish "sorting|source|kind|tags" to the
	// ids the index returns for it
	streamPages map[string][]string
	userPages   map[string][]string

	notifications []model.RawNotification

	postByIdsCalls int
	userByIdsCalls int
	streamCalls    int

	server *httptest.Server
}

func streamPageKey(sorting, source, kind, tags string) string {
	return sorting + "|" + source + "|" + kind + "|" + tags
}

func newFakeNexus() *fakeNexus {
	f := &fakeNexus{
		posts:       map[string]nexus.PostView{},
		users:       map[string]nexus.UserView{},
		streamPages: map[string][]string{},
		userPages:   map[string][]string{},
	}
	mux := http.NewServeMux()

	mux.HandleFunc("/v0/posts/by_ids", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.postByIdsCalls++
		f.mu.Unlock()
		var body struct {
			PostIds []string `json:"post_ids"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		views := []nexus.PostView{}
		f.mu.Lock()
		for _, id := range body.PostIds {
			if view, ok := f.posts[id]; ok {
				views = append(views, view)
			}
		}
		f.mu.Unlock()
		json.NewEncoder(w).Encode(views)
	})

	mux.HandleFunc("/v0/users/by_ids", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.userByIdsCalls++
		f.mu.Unlock()
		var body struct {
			UserIds []string `json:"user_ids"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		views := []nexus.UserView{}
		f.mu.Lock()
		for _, id := range body.UserIds {
			if view, ok := f.users[id]; ok {
				views = append(views, view)
			}
		}
		f.mu.Unlock()
		json.NewEncoder(w).Encode(views)
	})

	mux.HandleFunc("/v0/stream/posts", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.streamCalls++
		q := r.URL.Query()
		key := streamPageKey(q.Get("sorting"), q.Get("source"), q.Get("kind"), joinTags(q["tags"]))
		ids := f.streamPages[key]
		f.mu.Unlock()

		skip := 0
		if s := q.Get("skip"); s != "" {
			skip, _ = strconv.Atoi(s)
		}
		limit, _ := strconv.Atoi(q.Get("limit"))
		page := nexus.StreamPage{Ids: []string{}}
		if skip < len(ids) {
			end := len(ids)
			if limit > 0 && skip+limit < end {
				end = skip + limit
			}
			page.Ids = ids[skip:end]
			page.Tail = strconv.Itoa(end)
		}
		json.NewEncoder(w).Encode(page)
	})

	mux.HandleFunc("/v0/stream/users", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f.mu.Lock()
		ids := f.userPages[q.Get("user_id")+"|"+q.Get("source")]
		f.mu.Unlock()
		json.NewEncoder(w).Encode(nexus.StreamPage{Ids: ids})
	})

	mux.HandleFunc("/v0/user/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		raws := f.notifications
		f.mu.Unlock()
		json.NewEncoder(w).Encode(raws)
	})

	f.server = httptest.NewServer(mux)
	return f
}

func joinTags(tags []string) string {
	out := ""
	for i, t := range tags {
		if i > 0 {
			out += ","
		}
		out += t
	}
	return out
}

// addPost registers a post view in the fake index.
func (f *fakeNexus) addPost(id string, author string, content string) {
	view := nexus.PostView{}
	view.Details.Id = id
	view.Details.Author = author
	view.Details.Content = content
	view.Details.Kind = string(model.StreamKindShort)
	view.Details.IndexedAt = 1700000000000
	f.mu.Lock()
	f.posts[id] = view
	f.mu.Unlock()
}

func (f *fakeNexus) addUser(id string, name string) {
	view := nexus.UserView{}
	view.Details.Id = id
	view.Details.Name = name
	f.mu.Lock()
	f.users[id] = view
	f.mu.Unlock()
}

// fakeHomeserver records every request in order and can be told to fail.
type fakeHomeserver struct {
	mu       sync.Mutex
	requests []string // "METHOD path"
	failAll  bool
	listKeys []string

	server *httptest.Server
}

func newFakeHomeserver() *fakeHomeserver {
	f := &fakeHomeserver{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failAll {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.Method == http.MethodGet && r.URL.Query().Get("list") == "true" {
			json.NewEncoder(w).Encode(homeserver.ListPage{Keys: f.listKeys})
			return
		}
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	return f
}

func (f *fakeHomeserver) requestLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.requests...)
}

func (f *fakeHomeserver) setFailAll(fail bool) {
	f.mu.Lock()
	f.failAll = fail
	f.mu.Unlock()
}

const testViewer = "viewer"

func timePast() time.Time {
	return time.Now().Add(-time.Hour)
}

// newTestCore builds a Core over a temp cache DB and fake collaborators.
func newTestCore(t *testing.T) (*Core, *fakeNexus, *fakeHomeserver) {
	t.Helper()

	db := utils.CreateTempDB(t)
	nx := newFakeNexus()
	hs := newFakeHomeserver()
	t.Cleanup(nx.server.Close)
	t.Cleanup(hs.server.Close)

	core := NewCore(db, testViewer, nexus.NewClient(nx.server.URL), homeserver.NewClient(hs.server.URL))
	t.Cleanup(func() { require.Nil(t, core.Close()) })
	return core, nx, hs
}
