package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"matchmaking_server/controllers"
	"matchmaking_server/middleware"
	"matchmaking_server/services"
)

// RegisterChatRoutes registers chat and alarm routes on the /match subrouter
func RegisterChatRoutes(r *mux.Router, chat *services.ChatService, alarms *services.NotificationService, limiter *middleware.RateLimiter, log *zap.Logger) {
	controller := controllers.NewChatController(chat, alarms, log)

	r.HandleFunc("/chat/{matchId}", controller.HandleOpenThread).Methods("GET")
	r.Handle("/chat", limiter.Limit(http.HandlerFunc(controller.HandleSend))).Methods("POST")
	r.HandleFunc("/alarm", controller.HandleAlarm).Methods("GET")
}
