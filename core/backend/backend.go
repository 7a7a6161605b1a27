package backend

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/tav360/crm-backend/core/backend/filestore"
	"github.com/tav360/crm-backend/core/csql"
	"github.com/tav360/crm-backend/core/logger"
	"github.com/tav360/crm-backend/core/registry"
	"github.com/tav360/crm-backend/core/schema"
)

// UnknownKeyPolicy decides what happens with payload keys and order_by
// fields that are not part of an entity's declared field set.
type UnknownKeyPolicy string

const (
	// UnknownKeyIgnore silently drops unknown keys. This is the default.
	UnknownKeyIgnore UnknownKeyPolicy = "ignore"
	// UnknownKeyReject rejects requests with unknown keys with status 400.
	UnknownKeyReject UnknownKeyPolicy = "reject"
)

// Backend is the generic entity backend. It serves CRUD routes for all
// internal entities of the catalogue, the dashboard statistics routes,
// and forwards upstream entities to the configured upstream service.
type Backend struct {
	db               *csql.DB
	router           *mux.Router
	registry         *registry.Registry
	jsonValidator    *schema.Validator
	updateSchema     bool
	unknownKeyPolicy UnknownKeyPolicy
	upstreamURL      string
	upstreamClient   *http.Client
	fileStore        filestore.Driver
}

// Builder is a builder helper for the Backend
type Builder struct {
	// DB is a postgres database. This is mandatory.
	DB *csql.DB
	// Router is a mux router. This is mandatory.
	Router *mux.Router
	// Registry is the entity catalogue. This is mandatory.
	Registry *registry.Registry
	// JSONValidator holds JSON schemas for entities that declare a
	// schema id. This is optional.
	JSONValidator *schema.Validator
	// If UpdateSchema is true, the entity tables are created on
	// startup. Tables are created in catalogue order, so entities must
	// be declared after the entities they reference.
	UpdateSchema bool
	// UnknownKeyPolicy decides how unknown payload keys and order_by
	// fields are treated. Default is UnknownKeyIgnore.
	UnknownKeyPolicy UnknownKeyPolicy
	// UpstreamURL is the base URL of the upstream REST service for
	// upstream entities. This is optional; without it, upstream
	// entities respond 502.
	UpstreamURL string
	// UpstreamTimeout bounds upstream requests, default is 30s
	UpstreamTimeout time.Duration
	// FileStore stores uploaded files. This is optional; without it,
	// the upload route is not registered.
	FileStore filestore.Driver
}

// New realizes the actual backend. It creates the sql relations (if they
// do not exist) and adds actual routes to router
func New(bb *Builder) *Backend {
	if bb.DB == nil {
		panic("DB is missing")
	}
	if bb.Router == nil {
		panic("Router is missing")
	}
	if bb.Registry == nil {
		panic("Registry is missing")
	}

	policy := bb.UnknownKeyPolicy
	if policy == "" {
		policy = UnknownKeyIgnore
	}
	timeout := bb.UpstreamTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	b := &Backend{
		db:               bb.DB,
		router:           bb.Router,
		registry:         bb.Registry,
		jsonValidator:    bb.JSONValidator,
		updateSchema:     bb.UpdateSchema,
		unknownKeyPolicy: policy,
		upstreamURL:      bb.UpstreamURL,
		upstreamClient:   &http.Client{Timeout: timeout},
		fileStore:        bb.FileStore,
	}

	b.handleRoutes(b.router)
	return b
}

// handleRoutes adds all necessary handlers for the entity catalogue.
// Fixed routes come first, the upstream catch-all comes last.
func (b *Backend) handleRoutes(router *mux.Router) {
	rlog := logger.Default()
	rlog.Debugln("backend: handle routes")

	for _, d := range b.registry.Internal() {
		b.createEntityResource(router, d)
	}
	b.handleDashboardRoutes(router)
	b.handleUploadRoutes(router)
	b.handleUpstreamRoutes(router)
}

// returns $1,...,$n
func parameterString(n int) string {
	result := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			result += ","
		}
		result += "$" + strconv.Itoa(i+1)
	}
	return result
}

func writeJSON(w http.ResponseWriter, status int, jsonData []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(jsonData)
}

func badRequest(w http.ResponseWriter, format string, args ...interface{}) {
	http.Error(w, fmt.Sprintf(format, args...), http.StatusBadRequest)
}
