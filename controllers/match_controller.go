package controllers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"matchmaking_server/helpers"
	"matchmaking_server/models"
	"matchmaking_server/services"
)

// MatchController serves the proposal lists and lifecycle actions.
type MatchController struct {
	MatchService *services.MatchService
	ListService  *services.ListService
	Log          *zap.Logger
}

// NewMatchController initializes the controller
func NewMatchController(matches *services.MatchService, lists *services.ListService, log *zap.Logger) *MatchController {
	return &MatchController{MatchService: matches, ListService: lists, Log: log}
}

// HandleList returns the handler for one view: GET /match/{view}?page&size
func (c *MatchController) HandleList(view models.View) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))

		result, err := c.ListService.List(r.Context(), principal(r), view, page, size)
		if err != nil {
			c.Log.Error("❌ Error listing matches", zap.String("view", string(view)), zap.Error(err))
			helpers.WriteError(w, err)
			return
		}
		helpers.WriteJSONResponse(w, http.StatusOK, result)
	}
}

// HandlePropose - POST /match/send
func (c *MatchController) HandlePropose(w http.ResponseWriter, r *http.Request) {
	var request struct {
		FromClientID string `json:"fromClientId"`
		ToClientID   string `json:"toClientId"`
		Message      string `json:"message"`
	}
	if err := helpers.DecodeJSON(r, &request); err != nil {
		helpers.WriteError(w, err)
		return
	}

	match, err := c.MatchService.Propose(r.Context(), principal(r), request.FromClientID, request.ToClientID, request.Message)
	if err != nil {
		c.Log.Warn("⚠️ Proposal refused", zap.String("from", request.FromClientID), zap.String("to", request.ToClientID), zap.Error(err))
		helpers.WriteError(w, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusCreated, match)
}

// HandleCancel - POST /match/sent/cancel
func (c *MatchController) HandleCancel(w http.ResponseWriter, r *http.Request) {
	var request matchIDRequest
	if err := helpers.DecodeJSON(r, &request); err != nil {
		helpers.WriteError(w, err)
		return
	}
	c.writeMatch(w, request.MatchID)(c.MatchService.Cancel(r.Context(), principal(r), request.MatchID))
}

// HandleRespond - POST /match/received/respond
func (c *MatchController) HandleRespond(w http.ResponseWriter, r *http.Request) {
	var request struct {
		MatchID string `json:"matchId"`
		Accept  *bool  `json:"accept"`
	}
	if err := helpers.DecodeJSON(r, &request); err != nil {
		helpers.WriteError(w, err)
		return
	}
	if request.Accept == nil {
		helpers.WriteJSONMessage(w, http.StatusBadRequest, nil, "accept is required")
		return
	}
	c.writeMatch(w, request.MatchID)(c.MatchService.Respond(r.Context(), principal(r), request.MatchID, *request.Accept))
}

// HandleMarkViewed - POST /match/received/read
func (c *MatchController) HandleMarkViewed(w http.ResponseWriter, r *http.Request) {
	var request matchIDRequest
	if err := helpers.DecodeJSON(r, &request); err != nil {
		helpers.WriteError(w, err)
		return
	}
	c.writeMatch(w, request.MatchID)(c.MatchService.MarkViewed(r.Context(), principal(r), request.MatchID))
}

// HandleConfirm - POST /match/confirm
func (c *MatchController) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	var request matchIDRequest
	if err := helpers.DecodeJSON(r, &request); err != nil {
		helpers.WriteError(w, err)
		return
	}
	c.writeMatch(w, request.MatchID)(c.MatchService.ConfirmMatched(r.Context(), principal(r), request.MatchID))
}

func (c *MatchController) writeMatch(w http.ResponseWriter, matchID string) func(*models.Match, error) {
	return func(m *models.Match, err error) {
		if err != nil {
			c.Log.Warn("⚠️ Match action refused", zap.String("matchId", matchID), zap.Error(err))
			helpers.WriteError(w, err)
			return
		}
		helpers.WriteJSONResponse(w, http.StatusOK, m)
	}
}
