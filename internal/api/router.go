// Package api exposes the footprint use cases over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/footprint/internal/auth"
	"example.com/footprint/internal/domain"
	"example.com/footprint/internal/usecase"
)

// Repositories are the ports the HTTP layer's use cases run against.
type Repositories struct {
	Activities domain.ActivityRepository
	Factors    domain.EmissionFactorRepository
	Airports   domain.AirportRepository
	Regions    domain.RegionDataProvider
	Users      domain.UserRepository
}

// Services bundles every use case served over HTTP.
type Services struct {
	LogActivity     *usecase.LogActivity
	UpdateActivity  *usecase.UpdateActivity
	DeleteActivity  *usecase.DeleteActivity
	GetActivity     *usecase.GetActivity
	ListActivities  *usecase.ListActivities
	Migrate         *usecase.MigrateActivities
	Summary         *usecase.GetFootprintSummary
	Breakdown       *usecase.GetFootprintBreakdown
	Trend           *usecase.GetFootprintTrend
	Compare         *usecase.CompareToRegion
	CalculateFlight *usecase.CalculateFlight
	SearchAirports  *usecase.SearchAirports
	ListFactors     *usecase.ListEmissionFactors
	ListRegions     *usecase.ListRegions
	CurrentUser     *usecase.GetCurrentUser
}

// NewServices wires all use cases to repos.
func NewServices(repos Repositories, opts ...usecase.Option) Services {
	return Services{
		LogActivity:     usecase.NewLogActivity(repos.Activities, repos.Factors, opts...),
		UpdateActivity:  usecase.NewUpdateActivity(repos.Activities, repos.Factors),
		DeleteActivity:  usecase.NewDeleteActivity(repos.Activities),
		GetActivity:     usecase.NewGetActivity(repos.Activities),
		ListActivities:  usecase.NewListActivities(repos.Activities),
		Migrate:         usecase.NewMigrateActivities(repos.Activities),
		Summary:         usecase.NewGetFootprintSummary(repos.Activities, opts...),
		Breakdown:       usecase.NewGetFootprintBreakdown(repos.Activities, opts...),
		Trend:           usecase.NewGetFootprintTrend(repos.Activities, opts...),
		Compare:         usecase.NewCompareToRegion(repos.Activities, repos.Regions, opts...),
		CalculateFlight: usecase.NewCalculateFlight(repos.Airports),
		SearchAirports:  usecase.NewSearchAirports(repos.Airports),
		ListFactors:     usecase.NewListEmissionFactors(repos.Factors),
		ListRegions:     usecase.NewListRegions(repos.Regions),
		CurrentUser:     usecase.NewGetCurrentUser(repos.Users, opts...),
	}
}

// RouterConfig holds cross-cutting HTTP settings.
type RouterConfig struct {
	Auth        auth.Config
	CORSOrigins []string
	// RateLimit is requests per minute per client IP; zero disables it.
	RateLimit int
}

// Handler serves the footprint API.
type Handler struct {
	svc  Services
	auth auth.Middleware
}

// NewHandler builds a Handler.
func NewHandler(svc Services, cfg auth.Config) *Handler {
	return &Handler{svc: svc, auth: auth.NewMiddleware(cfg, unauthorized)}
}

// Routes returns the complete router including health and metrics endpoints.
func (h *Handler) Routes(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", auth.SessionHeader, middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", health)
	r.Get("/healthz", health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(httprate.Limit(cfg.RateLimit, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
					writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
				}),
			))
		}
		r.Use(h.auth.Wrap)

		r.Get("/emission-factors", h.listEmissionFactors)
		r.Get("/airports/search", h.searchAirports)
		r.Post("/flights/calculate", h.calculateFlight)
		r.Get("/regions", h.listRegions)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.RequireIdentity)
			r.Post("/activities", h.logActivity)
			r.Get("/activities", h.listActivities)
			r.Get("/activities/{id}", h.getActivity)
			r.Put("/activities/{id}", h.updateActivity)
			r.Delete("/activities/{id}", h.deleteActivity)
			r.Get("/footprint/summary", h.footprintSummary)
			r.Get("/footprint/breakdown", h.footprintBreakdown)
			r.Get("/footprint/trend", h.footprintTrend)
			r.Get("/compare", h.compare)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.auth.RequireUser)
			r.Get("/users/me", h.currentUser)
			r.Post("/users/me/migrate-activities", h.migrateActivities)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	})
	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "message": "Service is running"})
}

func unauthorized(w http.ResponseWriter, _ *http.Request, err error) {
	writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
}

func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

// caller carries both identifiers so ownership checks can fall back to the session.
func caller(id auth.Identity) domain.Owner {
	return domain.Owner{UserID: id.UserID, SessionID: id.SessionID}
}
