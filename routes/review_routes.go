package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"matchmaking_server/controllers"
	"matchmaking_server/middleware"
	"matchmaking_server/services"
)

func RegisterReviewRoutes(r *mux.Router, reviews *services.ReviewService, limiter *middleware.RateLimiter, log *zap.Logger) {
	controller := controllers.NewReviewController(reviews, log)

	r.Handle("/review", limiter.Limit(http.HandlerFunc(controller.HandleWrite))).Methods("POST")
	r.HandleFunc("/review", controller.HandleList).Methods("GET")
}
