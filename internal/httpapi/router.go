// Package httpapi implements the query surface over HTTP: the request
// lifecycle endpoints and the DR committee's endpoints. Modeled on
// gateway/routes.New's router assembly (go-chi based, middleware layered
// per-route), generalized from a reverse-proxy gateway to a first-party
// handler set, since this service owns the data it serves rather than
// proxying to another process.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ctrlplane/internal/dr"
	"ctrlplane/internal/httpapi/auth"
	"ctrlplane/internal/notify"
	"ctrlplane/internal/registry"
	"ctrlplane/internal/request"
)

// Server wires the request, registry, and DR services to an HTTP handler
// set.
type Server struct {
	requests    *request.Service
	dr          *dr.Service
	registry    *registry.Service
	auth        *auth.Authenticator
	rateLimiter *RateLimiter
	notifyHub   *notify.WSHub
}

func NewServer(requests *request.Service, drSvc *dr.Service, registrySvc *registry.Service, authenticator *auth.Authenticator) *Server {
	return &Server{requests: requests, dr: drSvc, registry: registrySvc, auth: authenticator}
}

// WithRateLimit enables per-client request throttling ahead of every route
// group, mirroring gateway/middleware's rate limiter position in the
// teacher's handler chain. perSecond <= 0 leaves rate limiting disabled.
func (s *Server) WithRateLimit(perSecond float64, burst int) *Server {
	if perSecond > 0 {
		s.rateLimiter = NewRateLimiter(perSecond, burst)
	}
	return s
}

// WithNotifyStream mounts hub's resumable websocket stream at
// /requests/stream, the same cursor/backlog push shape as the teacher's
// POS-finality stream, generalized from chain-finality updates to
// "possible approvers changed" events.
func (s *Server) WithNotifyStream(hub *notify.WSHub) *Server {
	s.notifyHub = hub
	return s
}

// Router builds the chi router, following a layered-middleware route
// assembly: recovery/logging first, then auth, then the handlers.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	if s.rateLimiter != nil {
		r.Use(s.rateLimiter.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Each route group is mounted only when its backing service is wired:
	// the main control-plane process and the DR companion process
	// (§4.6 "independent of the main process") share this router
	// assembly but each only wires the groups it owns.
	if s.requests != nil {
		r.Route("/requests", func(rr chi.Router) {
			if s.auth != nil {
				rr.Use(s.auth.Middleware)
			}
			rr.Get("/", s.handleListRequests)
			rr.Post("/", s.handleCreateRequest)
			rr.Get("/next_approvable", s.handleGetNextApprovable)
			rr.Get("/{id}", s.handleGetRequest)
			rr.Post("/{id}/approvals", s.handleSubmitApproval)
			rr.Post("/{id}/cancel", s.handleCancelRequest)
			if s.notifyHub != nil {
				rr.Get("/stream", s.notifyHub.HandleWS)
			}
		})
	}

	if s.dr != nil {
		r.Route("/disaster-recovery", func(rr chi.Router) {
			if s.auth != nil {
				rr.Use(s.auth.Middleware)
			}
			rr.Get("/", s.handleGetDRState)
			rr.Put("/committee", s.handleSetCommittee)
			rr.Post("/proposals", s.handleRequestRecovery)
			rr.Get("/logs", s.handleGetDRLogs)
		})
	}

	if s.registry != nil {
		r.Route("/registry", func(rr chi.Router) {
			if s.auth != nil {
				rr.Use(s.auth.Middleware)
			}
			rr.Post("/entries", s.handlePublishRegistryEntry)
			rr.Get("/entries/{namespace}/{name}", s.handleListRegistryVersions)
		})
	}

	return r
}
