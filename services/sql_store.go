package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"matchmaking_server/apperrors"
	"matchmaking_server/models"
)

var (
	ErrCreateDatabase  = errors.New("cannot create a database")
	ErrMigrationFailed = errors.New("failed to migrate")
)

// SQLStore implements Store and Directory on top of gorm. Status changes are
// conditional UPDATEs and chat appends run in a transaction holding the
// match row.
type SQLStore struct {
	db  *gorm.DB
	log *zap.Logger
}

// OpenSQLite opens (or creates) a sqlite database. sqlite allows one writer,
// so the pool is pinned to a single connection and transactions serialize.
func OpenSQLite(dsn string, log *zap.Logger) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Discard,
	})
	if err != nil {
		log.Error("❌ Cannot open GORM database", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCreateDatabase, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreateDatabase, err)
	}
	sqlDB.SetMaxOpenConns(1)

	return NewSQLStore(db, log), nil
}

// NewSQLStore wraps an already opened gorm handle.
func NewSQLStore(db *gorm.DB, log *zap.Logger) *SQLStore {
	return &SQLStore{db: db, log: log}
}

// Migrate creates or updates every table the service owns.
func (s *SQLStore) Migrate() error {
	s.log.Info("🛠️ Going to start database migrations")
	for _, model := range []any{
		&models.Match{},
		&models.ChatMessage{},
		&models.ReadMarker{},
		&models.Review{},
		&models.ClientSummary{},
	} {
		if err := s.db.AutoMigrate(model); err != nil {
			s.log.Error("❌ Migration failed", zap.String("model", fmt.Sprintf("%T", model)), zap.Error(err))
			return fmt.Errorf("%w: %v", ErrMigrationFailed, err)
		}
	}
	return nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateMatch inserts m with its active key set. The pre-check gives a clean
// error; the unique index on active_key is what actually enforces it.
func (s *SQLStore) CreateMatch(ctx context.Context, m *models.Match) error {
	key := models.PairKey(m.FromClientID, m.ToClientID)
	m.ActiveKey = &key

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Match{}).Where("active_key = ?", key).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperrors.ErrDuplicateActiveProposal
		}
		return tx.Create(m).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.ErrDuplicateActiveProposal
	}
	if err != nil && !errors.Is(err, apperrors.ErrDuplicateActiveProposal) {
		s.log.Error("❌ Failed to insert match", zap.String("matchId", m.MatchID), zap.Error(err))
		return fmt.Errorf("failed to create match: %w", err)
	}
	return err
}

func (s *SQLStore) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	return getMatch(s.db.WithContext(ctx), matchID)
}

func getMatch(tx *gorm.DB, matchID string) (*models.Match, error) {
	var m models.Match
	err := tx.Where("match_id = ?", matchID).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("match", matchID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return &m, nil
}

func (s *SQLStore) SetStatus(ctx context.Context, matchID string, to models.MatchStatus, at time.Time) (*models.Match, error) {
	sources := models.SourcesOf(to)

	var out *models.Match
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var affected int64
		if len(sources) > 0 {
			updates := map[string]any{"status": to, "updated_at": at}
			if to.IsTerminal() {
				updates["active_key"] = nil
			}
			res := tx.Model(&models.Match{}).
				Where("match_id = ? AND status IN ?", matchID, sources).
				Updates(updates)
			if res.Error != nil {
				return fmt.Errorf("failed to update match status: %w", res.Error)
			}
			affected = res.RowsAffected
		}

		m, err := getMatch(tx, matchID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return apperrors.InvalidTransition(string(m.Status), string(to))
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) ListByManager(ctx context.Context, managerID string, view models.View, page PageRequest) ([]models.Match, int, error) {
	var (
		items []models.Match
		total int64
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := viewQuery(tx.Model(&models.Match{}), managerID, view)
		if err := q.Count(&total).Error; err != nil {
			return err
		}
		if page.Limit > 0 && int64(page.Offset) >= total {
			return nil
		}
		q = viewQuery(tx, managerID, view).Order("created_at DESC").Order("match_id DESC")
		if page.Limit > 0 {
			q = q.Offset(page.Offset).Limit(page.Limit)
		}
		return q.Find(&items).Error
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list %s matches: %w", view, err)
	}
	if items == nil {
		items = []models.Match{}
	}
	return items, int(total), nil
}

func viewQuery(q *gorm.DB, managerID string, view models.View) *gorm.DB {
	switch view {
	case models.ViewSent:
		return q.Where("proposing_manager_id = ? AND status <> ?", managerID, models.StatusMatched)
	case models.ViewReceived:
		return q.Where("responding_manager_id = ? AND status <> ?", managerID, models.StatusMatched)
	default:
		return q.Where("(proposing_manager_id = ? OR responding_manager_id = ?) AND status = ?",
			managerID, managerID, models.StatusMatched)
	}
}

func (s *SQLStore) ListByParticipant(ctx context.Context, managerID string) ([]models.Match, error) {
	var items []models.Match
	err := s.db.WithContext(ctx).
		Where("proposing_manager_id = ? OR responding_manager_id = ?", managerID, managerID).
		Order("created_at DESC").Order("match_id DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for manager: %w", err)
	}
	return items, nil
}

func (s *SQLStore) ListActiveByClient(ctx context.Context, clientID string) ([]models.Match, error) {
	var items []models.Match
	err := s.db.WithContext(ctx).
		Where("(from_client_id = ? OR to_client_id = ?) AND status IN ?", clientID, clientID, models.ActiveStatuses()).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for client: %w", err)
	}
	return items, nil
}

func (s *SQLStore) ListActiveByManager(ctx context.Context, managerID string) ([]models.Match, error) {
	var items []models.Match
	err := s.db.WithContext(ctx).
		Where("(proposing_manager_id = ? OR responding_manager_id = ?) AND status IN ?", managerID, managerID, models.ActiveStatuses()).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for manager: %w", err)
	}
	return items, nil
}

// AppendMessage locks the match row, checks the status and inserts in one
// transaction, so a concurrent close either lands before (ChatClosed) or
// after the message.
func (s *SQLStore) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := getMatch(tx.Clauses(clause.Locking{Strength: "UPDATE"}), msg.MatchID)
		if err != nil {
			return err
		}
		if !m.Status.ChatEnabled() {
			return apperrors.Wrap(apperrors.CodeChatClosed, "chat is closed for this match", fmt.Errorf("status %s", m.Status))
		}
		if err := tx.Omit(clause.Associations).Create(msg).Error; err != nil {
			s.log.Error("❌ Failed to store message", zap.String("matchId", msg.MatchID), zap.Error(err))
			return fmt.Errorf("failed to store message: %w", err)
		}
		return nil
	})
}

func (s *SQLStore) ListThread(ctx context.Context, matchID string) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := s.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("created_at ASC").Order("message_id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	return msgs, nil
}

func (s *SQLStore) ListThreads(ctx context.Context, matchIDs []string) (map[string][]models.ChatMessage, error) {
	out := make(map[string][]models.ChatMessage, len(matchIDs))
	if len(matchIDs) == 0 {
		return out, nil
	}
	var msgs []models.ChatMessage
	err := s.db.WithContext(ctx).
		Where("match_id IN ?", matchIDs).
		Order("created_at ASC").Order("message_id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	for _, msg := range msgs {
		out[msg.MatchID] = append(out[msg.MatchID], msg)
	}
	return out, nil
}

func (s *SQLStore) GetReadMarker(ctx context.Context, managerID, matchID string) (*models.ReadMarker, error) {
	var marker models.ReadMarker
	err := s.db.WithContext(ctx).
		Where("manager_id = ? AND match_id = ?", managerID, matchID).
		Take(&marker).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get read marker: %w", err)
	}
	return &marker, nil
}

func (s *SQLStore) ListReadMarkers(ctx context.Context, managerID string) (map[string]models.ReadMarker, error) {
	var markers []models.ReadMarker
	if err := s.db.WithContext(ctx).Where("manager_id = ?", managerID).Find(&markers).Error; err != nil {
		return nil, fmt.Errorf("failed to list read markers: %w", err)
	}
	out := make(map[string]models.ReadMarker, len(markers))
	for _, m := range markers {
		out[m.MatchID] = m
	}
	return out, nil
}

func (s *SQLStore) SaveReadMarker(ctx context.Context, marker *models.ReadMarker) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.ReadMarker
		err := tx.Where("manager_id = ? AND match_id = ?", marker.ManagerID, marker.MatchID).Take(&current).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return fmt.Errorf("failed to read marker: %w", err)
		default:
			probe := models.ChatMessage{CreatedAt: marker.SeenAt, MessageID: marker.SeenMessageID}
			if !probe.After(current.SeenAt, current.SeenMessageID) {
				return nil
			}
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(marker).Error
	})
}

func (s *SQLStore) AddReview(ctx context.Context, r *models.Review) error {
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("failed to store review: %w", err)
	}
	return nil
}

func (s *SQLStore) ListReviewsByClient(ctx context.Context, clientID string) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC").Order("review_id DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return reviews, nil
}
