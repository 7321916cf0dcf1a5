package controllers

import (
	"net/http"

	"go.uber.org/zap"

	"matchmaking_server/helpers"
	"matchmaking_server/services"
)

// AdminController receives account signals from the identity service.
type AdminController struct {
	MatchService *services.MatchService
	Log          *zap.Logger
}

func NewAdminController(matches *services.MatchService, log *zap.Logger) *AdminController {
	return &AdminController{MatchService: matches, Log: log}
}

// HandleDeactivate - POST /internal/deactivate with exactly one of clientId
// or managerId.
func (c *AdminController) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ClientID  string `json:"clientId"`
		ManagerID string `json:"managerId"`
	}
	if err := helpers.DecodeJSON(r, &request); err != nil {
		helpers.WriteError(w, err)
		return
	}

	var (
		closed int
		err    error
	)
	switch {
	case request.ClientID != "" && request.ManagerID == "":
		closed, err = c.MatchService.DeactivateClient(r.Context(), request.ClientID)
	case request.ManagerID != "" && request.ClientID == "":
		closed, err = c.MatchService.DeactivateManager(r.Context(), request.ManagerID)
	default:
		helpers.WriteJSONMessage(w, http.StatusBadRequest, nil, "exactly one of clientId or managerId is required")
		return
	}
	if err != nil {
		c.Log.Error("❌ Deactivation failed", zap.String("clientId", request.ClientID), zap.String("managerId", request.ManagerID), zap.Error(err))
		helpers.WriteError(w, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]int{"closedMatches": closed})
}
