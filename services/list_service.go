package services

import (
	"context"
	"math"

	"go.uber.org/zap"

	"matchmaking_server/apperrors"
	"matchmaking_server/auth"
	"matchmaking_server/models"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ListService serves the received, sent and matched lists.
type ListService struct {
	Store     Store
	Directory Directory
	Log       *zap.Logger
}

func NewListService(store Store, dir Directory, log *zap.Logger) *ListService {
	return &ListService{Store: store, Directory: dir, Log: log}
}

// NormalizePage applies the defaults: page 1, size 10, size capped at 100.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// pageOffset saturates at math.MaxInt so a huge page number still lands past
// the end instead of wrapping negative.
func pageOffset(page, size int) int {
	if page-1 > math.MaxInt/size {
		return math.MaxInt
	}
	return (page - 1) * size
}

// List returns one 1-indexed page of a view, newest first, with client
// summaries and the actor's unread count on each item. A page past the end
// is empty, not an error.
func (s *ListService) List(ctx context.Context, actor auth.Principal, view models.View, page, size int) (*models.Page[models.MatchWithClients], error) {
	if actor.IsZero() {
		return nil, apperrors.ErrUnauthorized
	}
	if !view.Valid() {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "unknown view %q", view)
	}
	page, size = NormalizePage(page, size)

	matches, total, err := s.Store.ListByManager(ctx, actor.ManagerID, view, PageRequest{
		Offset: pageOffset(page, size),
		Limit:  size,
	})
	if err != nil {
		return nil, err
	}

	result := &models.Page[models.MatchWithClients]{
		TotalPages:  (total + size - 1) / size,
		CurrentPage: page,
		List:        make([]models.MatchWithClients, 0, len(matches)),
	}
	if len(matches) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(matches))
	clientIDs := make([]string, 0, 2*len(matches))
	for _, m := range matches {
		ids = append(ids, m.MatchID)
		clientIDs = append(clientIDs, m.FromClientID, m.ToClientID)
	}
	unread, err := unreadCounts(ctx, s.Store, actor.ManagerID, ids)
	if err != nil {
		return nil, err
	}
	clients, err := s.Directory.GetClients(ctx, clientIDs)
	if err != nil {
		s.Log.Warn("⚠️ Client summaries unavailable", zap.String("view", string(view)), zap.Error(err))
		clients = nil
	}

	for _, m := range matches {
		result.List = append(result.List, models.MatchWithClients{
			Match:           m,
			FromClient:      summaryOf(clients, m.FromClientID),
			ToClient:        summaryOf(clients, m.ToClientID),
			UnreadChatCount: unread[m.MatchID],
		})
	}
	return result, nil
}
