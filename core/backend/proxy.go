package backend

import (
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/tav360/crm-backend/core/logger"
)

// request headers relayed to the upstream service
var proxyRequestHeaders = []string{
	"Authorization",
	"Accept",
	"Content-Type",
	"Prefer",
	"Range",
	"Range-Unit",
}

// handleUpstreamRoutes adds catch-all routes that forward requests for
// upstream entities to the configured query service. The routes are
// registered last so they never shadow internal entities.
func (b *Backend) handleUpstreamRoutes(router *mux.Router) {
	if b.upstreamURL == "" {
		return
	}
	nillog := logger.Default()
	nillog.Debugln("  handle upstream routes: /rpc/{function} ALL")
	nillog.Debugln("  handle upstream routes: /{entity} ALL")
	nillog.Debugln("  handle upstream routes: /{entity}/{path} ALL")

	baseURL := strings.TrimSuffix(b.upstreamURL, "/")

	forward := func(w http.ResponseWriter, r *http.Request, target string) {
		rlog := logger.FromContext(r.Context())
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		request, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
		if err != nil {
			rlog.WithError(err).Errorf("Error 4751: cannot build upstream request")
			http.Error(w, "Error 4751", http.StatusInternalServerError)
			return
		}
		for _, header := range proxyRequestHeaders {
			if value := r.Header.Get(header); value != "" {
				request.Header.Set(header, value)
			}
		}
		response, err := b.upstreamClient.Do(request)
		if err != nil {
			rlog.WithError(err).Errorf("Error 4752: upstream request failed")
			http.Error(w, "upstream service unavailable", http.StatusBadGateway)
			return
		}
		defer response.Body.Close()

		for header, values := range response.Header {
			for _, value := range values {
				w.Header().Add(header, value)
			}
		}
		w.WriteHeader(response.StatusCode)
		io.Copy(w, response.Body)
	}

	router.HandleFunc("/rpc/{function}", func(w http.ResponseWriter, r *http.Request) {
		params := mux.Vars(r)
		forward(w, r, baseURL+"/rpc/"+params["function"])
	})

	entityTarget := func(w http.ResponseWriter, r *http.Request) (string, bool) {
		params := mux.Vars(r)
		d, ok := b.registry.Resolve(params["entity"])
		if !ok || !d.Upstream {
			http.Error(w, params["entity"]+" not found", http.StatusNotFound)
			return "", false
		}
		return baseURL + "/" + d.Table, true
	}

	router.HandleFunc("/{entity}", func(w http.ResponseWriter, r *http.Request) {
		target, ok := entityTarget(w, r)
		if !ok {
			return
		}
		forward(w, r, target)
	})

	router.HandleFunc("/{entity}/{path:.*}", func(w http.ResponseWriter, r *http.Request) {
		target, ok := entityTarget(w, r)
		if !ok {
			return
		}
		forward(w, r, target+"/"+mux.Vars(r)["path"])
	})
}
