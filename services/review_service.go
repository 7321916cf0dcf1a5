package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"matchmaking_server/apperrors"
	"matchmaking_server/auth"
	"matchmaking_server/models"
)

// MaxReviewLength bounds one review, in runes.
const MaxReviewLength = 2000

// ReviewService records feedback about a client once a match concluded.
type ReviewService struct {
	Store   Store
	Matches *MatchService
	Log     *zap.Logger
	Now     func() time.Time
	NewID   func() string
}

func NewReviewService(store Store, matches *MatchService, log *zap.Logger) *ReviewService {
	return &ReviewService{Store: store, Matches: matches, Log: log, Now: time.Now, NewID: newID}
}

// Write stores a review about one of the match's clients. Only MATCHED
// matches accept reviews.
func (s *ReviewService) Write(ctx context.Context, actor auth.Principal, matchID, clientID, content string) (*models.Review, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.InvalidArg("review content is empty")
	}
	if utf8.RuneCountInString(content) > MaxReviewLength {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "review exceeds %d characters", MaxReviewLength)
	}
	m, err := s.Matches.Get(ctx, actor, matchID)
	if err != nil {
		return nil, err
	}
	if !m.HasClient(clientID) {
		return nil, apperrors.InvalidArg("client is not part of this match")
	}
	owner, other := m.ProposingManagerID, m.RespondingManagerID
	if clientID == m.ToClientID {
		owner, other = other, owner
	}
	if owner == actor.ManagerID && other != actor.ManagerID {
		return nil, apperrors.InvalidArg("cannot review your own client")
	}
	if m.Status != models.StatusMatched {
		return nil, apperrors.Newf(apperrors.CodeInvalidTransition, "reviews require a matched match, got %s", m.Status)
	}

	r := &models.Review{
		ReviewID:  s.NewID(),
		MatchID:   m.MatchID,
		ClientID:  clientID,
		AuthorID:  actor.ManagerID,
		Content:   content,
		CreatedAt: timestamp(s.Now),
	}
	if err := s.Store.AddReview(ctx, r); err != nil {
		return nil, err
	}
	s.Log.Info("📝 Review written", zap.String("matchId", matchID), zap.String("clientId", clientID))
	return r, nil
}

// ListByClient returns a client's reviews, newest first.
func (s *ReviewService) ListByClient(ctx context.Context, actor auth.Principal, clientID string) ([]models.Review, error) {
	if actor.IsZero() {
		return nil, apperrors.ErrUnauthorized
	}
	if clientID == "" {
		return nil, apperrors.InvalidArg("clientId is required")
	}
	return s.Store.ListReviewsByClient(ctx, clientID)
}
