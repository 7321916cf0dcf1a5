package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"matchmaking_server/apperrors"
	"matchmaking_server/auth"
	"matchmaking_server/models"
)

// NotificationService derives the badge counters. Counts are recomputed on
// every read from matches, messages and read markers; nothing is cached.
type NotificationService struct {
	Store   Store
	Metrics *Metrics
	Log     *zap.Logger
}

func NewNotificationService(store Store, metrics *Metrics, log *zap.Logger) *NotificationService {
	return &NotificationService{Store: store, Metrics: metrics, Log: log}
}

// AlarmCounts sums the actor's unread chat messages across each view. The
// views are projected from a single read so a match is counted in at most
// the views it currently belongs to.
func (s *NotificationService) AlarmCounts(ctx context.Context, actor auth.Principal) (*models.AlarmCounts, error) {
	defer s.Metrics.alarm(time.Now())
	if actor.IsZero() {
		return nil, apperrors.ErrUnauthorized
	}

	matches, err := s.Store.ListByParticipant(ctx, actor.ManagerID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.MatchID)
	}
	unread, err := unreadCounts(ctx, s.Store, actor.ManagerID, ids)
	if err != nil {
		return nil, err
	}

	counts := &models.AlarmCounts{}
	for i := range matches {
		m := &matches[i]
		n := unread[m.MatchID]
		if m.InView(actor.ManagerID, models.ViewReceived) {
			counts.ReceivedCount += n
		}
		if m.InView(actor.ManagerID, models.ViewSent) {
			counts.SentCount += n
		}
		if m.InView(actor.ManagerID, models.ViewMatched) {
			counts.MatchedCount += n
		}
	}
	s.Log.Debug("🔔 Alarm counts computed",
		zap.String("manager", actor.ManagerID),
		zap.Int("received", counts.ReceivedCount),
		zap.Int("sent", counts.SentCount),
		zap.Int("matched", counts.MatchedCount))
	return counts, nil
}

// unreadCounts returns, per match id, the messages viewerID has not seen.
func unreadCounts(ctx context.Context, chat ChatStore, viewerID string, matchIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(matchIDs))
	if len(matchIDs) == 0 {
		return out, nil
	}
	threads, err := chat.ListThreads(ctx, matchIDs)
	if err != nil {
		return nil, err
	}
	markers, err := chat.ListReadMarkers(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	for _, id := range matchIDs {
		var marker *models.ReadMarker
		if mk, ok := markers[id]; ok {
			marker = &mk
		}
		out[id] = models.CountUnread(threads[id], viewerID, marker)
	}
	return out, nil
}
