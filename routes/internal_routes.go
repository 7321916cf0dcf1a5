package routes

import (
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"matchmaking_server/controllers"
	"matchmaking_server/services"
)

// RegisterInternalRoutes registers the identity-service callbacks. The
// gateway must not expose /internal publicly.
func RegisterInternalRoutes(r *mux.Router, matches *services.MatchService, log *zap.Logger) {
	controller := controllers.NewAdminController(matches, log)

	internalRouter := r.PathPrefix("/internal").Subrouter()
	internalRouter.HandleFunc("/deactivate", controller.HandleDeactivate).Methods("POST")
}
