package services

import (
	"context"
	"time"

	"matchmaking_server/models"
)

// PageRequest selects a window of a list. Limit 0 means everything.
type PageRequest struct {
	Offset int
	Limit  int
}

// MatchStore is the durable record of matches and the only place a status
// changes.
type MatchStore interface {
	// CreateMatch persists a new match. It fails with ErrDuplicateActiveProposal
	// when a non-terminal match exists for the same ordered client pair.
	CreateMatch(ctx context.Context, m *models.Match) error
	GetMatch(ctx context.Context, matchID string) (*models.Match, error)
	// SetStatus is a compare-and-swap: it applies only while the stored
	// status is still a source of `to` in the lifecycle graph.
	SetStatus(ctx context.Context, matchID string, to models.MatchStatus, at time.Time) (*models.Match, error)
	// ListByManager returns one view ordered createdAt desc, matchId desc,
	// along with the total size of the view.
	ListByManager(ctx context.Context, managerID string, view models.View, page PageRequest) ([]models.Match, int, error)
	// ListByParticipant returns every match touching managerID on either
	// side, in one read, for projections that must agree with each other.
	ListByParticipant(ctx context.Context, managerID string) ([]models.Match, error)
	ListActiveByClient(ctx context.Context, clientID string) ([]models.Match, error)
	ListActiveByManager(ctx context.Context, managerID string) ([]models.Match, error)
}

// ChatStore owns message lifetime and the per-viewer read watermarks.
type ChatStore interface {
	// AppendMessage inserts msg only if the owning match is chat-enabled,
	// atomically with respect to status changes on the same match.
	AppendMessage(ctx context.Context, msg *models.ChatMessage) error
	ListThread(ctx context.Context, matchID string) ([]models.ChatMessage, error)
	ListThreads(ctx context.Context, matchIDs []string) (map[string][]models.ChatMessage, error)
	// GetReadMarker returns nil without error when the viewer never opened
	// the thread.
	GetReadMarker(ctx context.Context, managerID, matchID string) (*models.ReadMarker, error)
	ListReadMarkers(ctx context.Context, managerID string) (map[string]models.ReadMarker, error)
	// SaveReadMarker moves the watermark forward and ignores older positions.
	SaveReadMarker(ctx context.Context, marker *models.ReadMarker) error
}

// ReviewStore is append-only.
type ReviewStore interface {
	AddReview(ctx context.Context, r *models.Review) error
	ListReviewsByClient(ctx context.Context, clientID string) ([]models.Review, error)
}

// Directory is the identity/profile collaborator: client ownership and
// display summaries. The core never writes profile fields.
type Directory interface {
	GetClient(ctx context.Context, clientID string) (*models.ClientSummary, error)
	GetClients(ctx context.Context, clientIDs []string) (map[string]models.ClientSummary, error)
}

// ClientDeactivator is implemented by directories that record the
// deactivation signal so later proposals to the client are refused.
type ClientDeactivator interface {
	SetClientActive(ctx context.Context, clientID string, active bool) error
	// SetManagerClientsActive flips every client the manager owns and
	// reports how many records it touched.
	SetManagerClientsActive(ctx context.Context, managerID string, active bool) (int, error)
}

// Store bundles the three persistence concerns behind one backend.
type Store interface {
	MatchStore
	ChatStore
	ReviewStore
	Close() error
}
