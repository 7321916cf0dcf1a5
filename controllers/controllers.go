package controllers

import (
	"net/http"

	"matchmaking_server/auth"
	"matchmaking_server/helpers"
)

// HealthCheckHandler provides a basic health check
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// principal returns the acting manager placed by middleware.RequireManager.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}

type matchIDRequest struct {
	MatchID string `json:"matchId"`
}
