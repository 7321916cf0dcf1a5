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

// MaxChatMessageLength bounds one chat message, in runes.
const MaxChatMessageLength = 2000

// ChatService handles the per-match thread between the two managers.
type ChatService struct {
	Store     Store
	Directory Directory
	Matches   *MatchService
	Metrics   *Metrics
	Log       *zap.Logger
	Now       func() time.Time
	NewID     func() string
}

func NewChatService(store Store, dir Directory, matches *MatchService, metrics *Metrics, log *zap.Logger) *ChatService {
	return &ChatService{
		Store:     store,
		Directory: dir,
		Matches:   matches,
		Metrics:   metrics,
		Log:       log,
		Now:       time.Now,
		NewID:     newID,
	}
}

// Send appends a message to the thread of a chat-enabled match.
func (s *ChatService) Send(ctx context.Context, actor auth.Principal, matchID, content string) (*models.ChatMessage, error) {
	msg, err := s.send(ctx, actor, matchID, content)
	s.Metrics.chat(err)
	return msg, err
}

func (s *ChatService) send(ctx context.Context, actor auth.Principal, matchID, content string) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > MaxChatMessageLength {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "message exceeds %d characters", MaxChatMessageLength)
	}
	m, err := s.Matches.Get(ctx, actor, matchID)
	if err != nil {
		return nil, err
	}
	if !m.Status.ChatEnabled() {
		return nil, apperrors.ErrChatClosed
	}

	msg := &models.ChatMessage{
		MessageID: s.NewID(),
		MatchID:   m.MatchID,
		SenderID:  actor.ManagerID,
		Content:   content,
		CreatedAt: timestamp(s.Now),
	}
	if err := s.Store.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}
	s.Log.Debug("💬 Message sent", zap.String("matchId", matchID), zap.String("messageId", msg.MessageID))
	return msg, nil
}

// OpenThread returns the match, both client summaries and every message in
// order. Opening counts as viewing the proposal, and moves the actor's read
// watermark to the last message.
func (s *ChatService) OpenThread(ctx context.Context, actor auth.Principal, matchID string) (*models.ChatThread, error) {
	m, err := s.Matches.Get(ctx, actor, matchID)
	if err != nil {
		return nil, err
	}
	if m.RespondingManagerID == actor.ManagerID && m.Status == models.StatusUnread {
		if m, err = s.Matches.MarkViewed(ctx, actor, matchID); err != nil {
			return nil, err
		}
	}

	messages, err := s.Store.ListThread(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	if n := len(messages); n > 0 {
		last := messages[n-1]
		err := s.Store.SaveReadMarker(ctx, &models.ReadMarker{
			ManagerID:     actor.ManagerID,
			MatchID:       matchID,
			SeenAt:        last.CreatedAt,
			SeenMessageID: last.MessageID,
		})
		if err != nil {
			return nil, err
		}
	}

	thread := &models.ChatThread{
		Match:    m,
		Messages: messages,
		ChatOpen: m.Status.ChatEnabled(),
	}
	clients, err := s.Directory.GetClients(ctx, []string{m.FromClientID, m.ToClientID})
	if err != nil {
		s.Log.Warn("⚠️ Client summaries unavailable", zap.String("matchId", matchID), zap.Error(err))
		return thread, nil
	}
	thread.FromClient = summaryOf(clients, m.FromClientID)
	thread.ToClient = summaryOf(clients, m.ToClientID)
	return thread, nil
}

func summaryOf(clients map[string]models.ClientSummary, id string) *models.ClientSummary {
	c, ok := clients[id]
	if !ok {
		return nil
	}
	return &c
}
