package controllers

import (
	"net/http"

	"go.uber.org/zap"

	"matchmaking_server/helpers"
	"matchmaking_server/services"
)

type ReviewController struct {
	ReviewService *services.ReviewService
	Log           *zap.Logger
}

func NewReviewController(reviews *services.ReviewService, log *zap.Logger) *ReviewController {
	return &ReviewController{ReviewService: reviews, Log: log}
}

// HandleWrite - POST /match/review
func (c *ReviewController) HandleWrite(w http.ResponseWriter, r *http.Request) {
	var request struct {
		MatchID  string `json:"matchId"`
		ClientID string `json:"clientId"`
		Content  string `json:"content"`
	}
	if err := helpers.DecodeJSON(r, &request); err != nil {
		helpers.WriteError(w, err)
		return
	}

	review, err := c.ReviewService.Write(r.Context(), principal(r), request.MatchID, request.ClientID, request.Content)
	if err != nil {
		c.Log.Warn("⚠️ Review refused", zap.String("matchId", request.MatchID), zap.Error(err))
		helpers.WriteError(w, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusCreated, review)
}

// HandleList - GET /match/review?clientId=
func (c *ReviewController) HandleList(w http.ResponseWriter, r *http.Request) {
	reviews, err := c.ReviewService.ListByClient(r.Context(), principal(r), r.URL.Query().Get("clientId"))
	if err != nil {
		helpers.WriteError(w, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, reviews)
}
