package backend

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tav360/crm-backend/core/csql"
	"github.com/tav360/crm-backend/core/registry"
)

func newProxyBackend(t *testing.T, upstreamURL string) *mux.Router {
	t.Helper()
	db, _, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	catalogue := registry.MustNew([]registry.EntityDescriptor{
		{
			Name:  "contact",
			Table: "contacts",
			Fields: []registry.Field{
				{Name: "full_name", Type: registry.String, Required: true},
			},
		},
		{Name: "propertybrokerage", Table: "property_brokerage", Upstream: true},
	})

	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	New(&Builder{
		DB:          &csql.DB{DB: db, Schema: "public"},
		Router:      api,
		Registry:    catalogue,
		UpstreamURL: upstreamURL,
	})
	return router
}

func TestUpstreamForward(t *testing.T) {
	var receivedPath, receivedQuery, receivedAuth string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		receivedQuery = r.URL.RawQuery
		receivedAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Range", "0-1/2")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte(`[{"property_id": 1}]`))
	}))
	defer upstream.Close()

	router := newProxyBackend(t, upstream.URL)
	r := httptest.NewRequest(http.MethodGet, "/api/propertybrokerage?select=property_id&limit=2", nil)
	r.Header.Set("Authorization", "Bearer token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "/property_brokerage", receivedPath)
	assert.Equal(t, "select=property_id&limit=2", receivedQuery)
	assert.Equal(t, "Bearer token", receivedAuth)
	assert.Equal(t, "0-1/2", w.Header().Get("Content-Range"))
	assert.Equal(t, `[{"property_id": 1}]`, w.Body.String())
}

func TestUpstreamForwardSubPath(t *testing.T) {
	var receivedPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	router := newProxyBackend(t, upstream.URL)
	w := doRequest(router, http.MethodGet, "/api/propertybrokerage/some/sub/path", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/property_brokerage/some/sub/path", receivedPath)
}

func TestUpstreamRPC(t *testing.T) {
	var receivedPath, receivedBody string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		buffer := make([]byte, 1024)
		n, _ := r.Body.Read(buffer)
		receivedBody = string(buffer[:n])
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[]`))
	}))
	defer upstream.Close()

	router := newProxyBackend(t, upstream.URL)
	w := doRequest(router, http.MethodPost, "/api/rpc/match_properties", `{"city": "חיפה"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/rpc/match_properties", receivedPath)
	assert.Equal(t, `{"city": "חיפה"}`, receivedBody)
}

func TestUpstreamUnknownEntity(t *testing.T) {
	var called int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&called, 1)
	}))
	defer upstream.Close()

	router := newProxyBackend(t, upstream.URL)
	w := doRequest(router, http.MethodGet, "/api/nosuchentity", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "nosuchentity not found")
	assert.Equal(t, int32(0), atomic.LoadInt32(&called))
}

func TestUpstreamInternalEntityNotProxied(t *testing.T) {
	var called int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&called, 1)
	}))
	defer upstream.Close()

	// sub-paths below an internal item route must not leak upstream
	router := newProxyBackend(t, upstream.URL)
	w := doRequest(router, http.MethodGet, "/api/contact/1/documents", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, int32(0), atomic.LoadInt32(&called))
}

func TestUpstreamUnavailable(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close()

	router := newProxyBackend(t, upstream.URL)
	w := doRequest(router, http.MethodGet, "/api/propertybrokerage", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "upstream service unavailable")
}
