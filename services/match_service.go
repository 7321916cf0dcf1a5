package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"matchmaking_server/apperrors"
	"matchmaking_server/auth"
	"matchmaking_server/models"
)

// MaxProposalMessageLength bounds the note attached to a proposal, in runes.
const MaxProposalMessageLength = 500

// newID returns a time-ordered UUID so ids break createdAt ties in creation
// order.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// MatchService owns the match lifecycle: every status change goes through
// one of its operations, and through MatchStore.SetStatus.
type MatchService struct {
	Store     MatchStore
	Directory Directory
	Metrics   *Metrics
	Log       *zap.Logger
	Now       func() time.Time
	NewID     func() string
}

func NewMatchService(store MatchStore, dir Directory, metrics *Metrics, log *zap.Logger) *MatchService {
	return &MatchService{
		Store:     store,
		Directory: dir,
		Metrics:   metrics,
		Log:       log,
		Now:       time.Now,
		NewID:     newID,
	}
}

// timestamp is the stored form of a clock reading: UTC, whole seconds. sqlite
// orders times as text, which only holds at a fixed width; UUIDv7 ids keep
// creation order within a second.
func timestamp(now func() time.Time) time.Time {
	return now().UTC().Truncate(time.Second)
}

func (s *MatchService) now() time.Time { return timestamp(s.Now) }

// Propose creates an UNREAD match from one of the actor's clients to a client
// of any manager.
func (s *MatchService) Propose(ctx context.Context, actor auth.Principal, fromClientID, toClientID, message string) (*models.Match, error) {
	m, err := s.propose(ctx, actor, fromClientID, toClientID, message)
	s.Metrics.proposal(err)
	return m, err
}

func (s *MatchService) propose(ctx context.Context, actor auth.Principal, fromClientID, toClientID, message string) (*models.Match, error) {
	if actor.IsZero() {
		return nil, apperrors.ErrUnauthorized
	}
	if fromClientID == "" || toClientID == "" {
		return nil, apperrors.InvalidArg("fromClientId and toClientId are required")
	}
	if fromClientID == toClientID {
		return nil, apperrors.ErrSelfMatch
	}
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) > MaxProposalMessageLength {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "message exceeds %d characters", MaxProposalMessageLength)
	}

	from, err := s.Directory.GetClient(ctx, fromClientID)
	if err != nil {
		return nil, err
	}
	if from.ManagerID != actor.ManagerID {
		return nil, apperrors.ErrUnauthorized
	}
	to, err := s.Directory.GetClient(ctx, toClientID)
	if err != nil {
		return nil, err
	}
	if !from.Active || !to.Active {
		return nil, apperrors.Newf(apperrors.CodeInvalidTransition, "cannot propose with a deactivated client")
	}

	now := s.now()
	m := &models.Match{
		MatchID:             s.NewID(),
		FromClientID:        from.ClientID,
		ToClientID:          to.ClientID,
		ProposingManagerID:  from.ManagerID,
		RespondingManagerID: to.ManagerID,
		Status:              models.StatusUnread,
		Message:             message,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.Store.CreateMatch(ctx, m); err != nil {
		return nil, err
	}
	s.Log.Info("💌 Match proposed",
		zap.String("matchId", m.MatchID),
		zap.String("from", m.FromClientID),
		zap.String("to", m.ToClientID),
		zap.String("manager", actor.ManagerID))
	return m, nil
}

// Get returns a match the actor participates in.
func (s *MatchService) Get(ctx context.Context, actor auth.Principal, matchID string) (*models.Match, error) {
	if matchID == "" {
		return nil, apperrors.InvalidArg("matchId is required")
	}
	m, err := s.Store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !m.IsParticipant(actor.ManagerID) {
		return nil, apperrors.ErrUnauthorized
	}
	return m, nil
}

func (s *MatchService) setStatus(ctx context.Context, matchID string, to models.MatchStatus) (*models.Match, error) {
	m, err := s.Store.SetStatus(ctx, matchID, to, s.now())
	s.Metrics.transition(to, err)
	if err == nil {
		s.Log.Info("🔁 Match status changed", zap.String("matchId", matchID), zap.String("status", string(to)))
	}
	return m, err
}

// guard fails fast on an edge the graph does not have; the store still
// re-checks atomically.
func guard(m *models.Match, to models.MatchStatus) error {
	if !models.CanTransition(m.Status, to) {
		return apperrors.InvalidTransition(string(m.Status), string(to))
	}
	return nil
}

// MarkViewed moves UNREAD to PENDING when the responding side opens the
// proposal. Anything else is a no-op.
func (s *MatchService) MarkViewed(ctx context.Context, actor auth.Principal, matchID string) (*models.Match, error) {
	m, err := s.Get(ctx, actor, matchID)
	if err != nil {
		return nil, err
	}
	if m.RespondingManagerID != actor.ManagerID || m.Status != models.StatusUnread {
		return m, nil
	}
	updated, err := s.setStatus(ctx, matchID, models.StatusPending)
	if errors.Is(err, apperrors.ErrInvalidTransition) {
		// Someone else moved it first; viewing is still a no-op.
		return s.Store.GetMatch(ctx, matchID)
	}
	return updated, err
}

// Cancel withdraws a proposal before the responder decides.
func (s *MatchService) Cancel(ctx context.Context, actor auth.Principal, matchID string) (*models.Match, error) {
	m, err := s.Get(ctx, actor, matchID)
	if err != nil {
		return nil, err
	}
	if m.ProposingManagerID != actor.ManagerID {
		return nil, apperrors.Newf(apperrors.CodeInvalidTransition, "only the proposing manager can cancel")
	}
	if err := guard(m, models.StatusCanceled); err != nil {
		return nil, err
	}
	return s.setStatus(ctx, matchID, models.StatusCanceled)
}

// Respond records the responder's decision.
func (s *MatchService) Respond(ctx context.Context, actor auth.Principal, matchID string, accept bool) (*models.Match, error) {
	to := models.StatusRejected
	if accept {
		to = models.StatusAccepted
	}
	m, err := s.Get(ctx, actor, matchID)
	if err != nil {
		return nil, err
	}
	if m.RespondingManagerID != actor.ManagerID {
		return nil, apperrors.Newf(apperrors.CodeInvalidTransition, "only the responding manager can respond")
	}
	if err := guard(m, to); err != nil {
		return nil, err
	}
	return s.setStatus(ctx, matchID, to)
}

// ConfirmMatched finalizes an accepted match. Confirming a match that is
// already MATCHED succeeds without a write.
func (s *MatchService) ConfirmMatched(ctx context.Context, actor auth.Principal, matchID string) (*models.Match, error) {
	m, err := s.Get(ctx, actor, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status == models.StatusMatched {
		return m, nil
	}
	if err := guard(m, models.StatusMatched); err != nil {
		return nil, err
	}
	updated, err := s.setStatus(ctx, matchID, models.StatusMatched)
	if errors.Is(err, apperrors.ErrInvalidTransition) {
		if current, getErr := s.Store.GetMatch(ctx, matchID); getErr == nil && current.Status == models.StatusMatched {
			return current, nil
		}
	}
	return updated, err
}

// DeactivateClient records the client as inactive and closes every active
// match involving it. It returns how many matches were closed.
func (s *MatchService) DeactivateClient(ctx context.Context, clientID string) (int, error) {
	if clientID == "" {
		return 0, apperrors.InvalidArg("clientId is required")
	}
	if d, ok := s.Directory.(ClientDeactivator); ok {
		if err := d.SetClientActive(ctx, clientID, false); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return 0, err
		}
	}
	matches, err := s.Store.ListActiveByClient(ctx, clientID)
	if err != nil {
		return 0, err
	}
	return s.deactivateAll(ctx, matches, zap.String("clientId", clientID))
}

// DeactivateManager records every client of the manager as inactive and
// closes every active match either side of which the manager owns.
func (s *MatchService) DeactivateManager(ctx context.Context, managerID string) (int, error) {
	if managerID == "" {
		return 0, apperrors.InvalidArg("managerId is required")
	}
	if d, ok := s.Directory.(ClientDeactivator); ok {
		n, err := d.SetManagerClientsActive(ctx, managerID, false)
		if err != nil {
			return 0, err
		}
		s.Log.Info("🚫 Clients of manager marked inactive", zap.String("managerId", managerID), zap.Int("clients", n))
	}
	matches, err := s.Store.ListActiveByManager(ctx, managerID)
	if err != nil {
		return 0, err
	}
	return s.deactivateAll(ctx, matches, zap.String("managerId", managerID))
}

func (s *MatchService) deactivateAll(ctx context.Context, matches []models.Match, subject zap.Field) (int, error) {
	closed := 0
	for _, m := range matches {
		_, err := s.setStatus(ctx, m.MatchID, models.StatusDeactivatedUser)
		if errors.Is(err, apperrors.ErrInvalidTransition) {
			// Reached a terminal status concurrently.
			continue
		}
		if err != nil {
			return closed, err
		}
		closed++
	}
	s.Log.Info("🚫 Deactivation applied", subject, zap.Int("closed", closed))
	return closed, nil
}
