package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"matchmaking_server/controllers"
	"matchmaking_server/middleware"
	"matchmaking_server/models"
	"matchmaking_server/services"
)

// RegisterMatchRoutes registers the list views and lifecycle actions on the
// /match subrouter. Writes are rate limited per manager.
func RegisterMatchRoutes(r *mux.Router, matches *services.MatchService, lists *services.ListService, limiter *middleware.RateLimiter, log *zap.Logger) {
	controller := controllers.NewMatchController(matches, lists, log)

	r.HandleFunc("/received", controller.HandleList(models.ViewReceived)).Methods("GET")
	r.HandleFunc("/sent", controller.HandleList(models.ViewSent)).Methods("GET")
	r.HandleFunc("/matched", controller.HandleList(models.ViewMatched)).Methods("GET")

	r.Handle("/send", limiter.Limit(http.HandlerFunc(controller.HandlePropose))).Methods("POST")
	r.Handle("/sent/cancel", limiter.Limit(http.HandlerFunc(controller.HandleCancel))).Methods("POST")
	r.Handle("/received/respond", limiter.Limit(http.HandlerFunc(controller.HandleRespond))).Methods("POST")
	r.Handle("/received/read", limiter.Limit(http.HandlerFunc(controller.HandleMarkViewed))).Methods("POST")
	r.Handle("/confirm", limiter.Limit(http.HandlerFunc(controller.HandleConfirm))).Methods("POST")
}
