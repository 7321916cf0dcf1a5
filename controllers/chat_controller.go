package controllers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"matchmaking_server/helpers"
	"matchmaking_server/services"
)

// ChatController serves match threads and the alarm badge.
type ChatController struct {
	ChatService         *services.ChatService
	NotificationService *services.NotificationService
	Log                 *zap.Logger
}

// NewChatController initializes the chat controller
func NewChatController(chat *services.ChatService, alarms *services.NotificationService, log *zap.Logger) *ChatController {
	return &ChatController{ChatService: chat, NotificationService: alarms, Log: log}
}

// HandleOpenThread - GET /match/chat/{matchId}
func (c *ChatController) HandleOpenThread(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchId"]

	thread, err := c.ChatService.OpenThread(r.Context(), principal(r), matchID)
	if err != nil {
		c.Log.Warn("⚠️ Cannot open thread", zap.String("matchId", matchID), zap.Error(err))
		helpers.WriteError(w, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, thread)
}

// HandleSend - POST /match/chat
func (c *ChatController) HandleSend(w http.ResponseWriter, r *http.Request) {
	var request struct {
		MatchID string `json:"matchId"`
		Content string `json:"content"`
	}
	if err := helpers.DecodeJSON(r, &request); err != nil {
		helpers.WriteError(w, err)
		return
	}

	msg, err := c.ChatService.Send(r.Context(), principal(r), request.MatchID, request.Content)
	if err != nil {
		c.Log.Warn("⚠️ Message refused", zap.String("matchId", request.MatchID), zap.Error(err))
		helpers.WriteError(w, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusCreated, msg)
}

// HandleAlarm - GET /match/alarm
func (c *ChatController) HandleAlarm(w http.ResponseWriter, r *http.Request) {
	counts, err := c.NotificationService.AlarmCounts(r.Context(), principal(r))
	if err != nil {
		c.Log.Error("❌ Error computing alarm counts", zap.Error(err))
		helpers.WriteError(w, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, counts)
}
