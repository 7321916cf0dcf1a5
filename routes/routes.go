package routes

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"matchmaking_server/controllers"
	"matchmaking_server/middleware"
	"matchmaking_server/services"
)

// Dependencies are the wired services the HTTP surface exposes.
type Dependencies struct {
	Matches  *services.MatchService
	Lists    *services.ListService
	Chat     *services.ChatService
	Alarms   *services.NotificationService
	Reviews  *services.ReviewService
	Limiter  *middleware.RateLimiter
	Gatherer prometheus.Gatherer
	Log      *zap.Logger
}

// NewRouter builds the full router. Everything under /match requires the
// gateway's manager identity.
func NewRouter(d Dependencies) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(d.Log))
	RegisterRoutes(r, d.Gatherer)

	matchRouter := r.PathPrefix("/match").Subrouter()
	matchRouter.Use(middleware.RequireManager)
	RegisterMatchRoutes(matchRouter, d.Matches, d.Lists, d.Limiter, d.Log)
	RegisterChatRoutes(matchRouter, d.Chat, d.Alarms, d.Limiter, d.Log)
	RegisterReviewRoutes(matchRouter, d.Reviews, d.Limiter, d.Log)

	RegisterInternalRoutes(r, d.Matches, d.Log)
	return r
}

// RegisterRoutes sets up the operational routes
func RegisterRoutes(r *mux.Router, gatherer prometheus.Gatherer) {
	r.HandleFunc("/health", controllers.HealthCheckHandler).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
}
