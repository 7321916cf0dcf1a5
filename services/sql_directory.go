package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"matchmaking_server/apperrors"
	"matchmaking_server/models"
)

// SQLDirectory reads client ownership and summaries from the clients table
// kept in sync by the profile service.
type SQLDirectory struct {
	db *gorm.DB
}

func NewSQLDirectory(store *SQLStore) *SQLDirectory {
	return &SQLDirectory{db: store.db}
}

func (d *SQLDirectory) GetClient(ctx context.Context, clientID string) (*models.ClientSummary, error) {
	var c models.ClientSummary
	err := d.db.WithContext(ctx).Where("client_id = ?", clientID).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("client", clientID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &c, nil
}

// GetClients returns the summaries it finds; unknown ids are simply absent.
func (d *SQLDirectory) GetClients(ctx context.Context, clientIDs []string) (map[string]models.ClientSummary, error) {
	out := make(map[string]models.ClientSummary, len(clientIDs))
	if len(clientIDs) == 0 {
		return out, nil
	}
	var clients []models.ClientSummary
	if err := d.db.WithContext(ctx).Where("client_id IN ?", clientIDs).Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("failed to get clients: %w", err)
	}
	for _, c := range clients {
		out[c.ClientID] = c
	}
	return out, nil
}

// UpsertClient mirrors a client record from the profile service.
func (d *SQLDirectory) UpsertClient(ctx context.Context, c *models.ClientSummary) error {
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(c).Error
	if err != nil {
		return fmt.Errorf("failed to upsert client: %w", err)
	}
	return nil
}

func (d *SQLDirectory) SetClientActive(ctx context.Context, clientID string, active bool) error {
	res := d.db.WithContext(ctx).Model(&models.ClientSummary{}).
		Where("client_id = ?", clientID).
		Update("active", active)
	if res.Error != nil {
		return fmt.Errorf("failed to update client: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("client", clientID)
	}
	return nil
}

func (d *SQLDirectory) SetManagerClientsActive(ctx context.Context, managerID string, active bool) (int, error) {
	res := d.db.WithContext(ctx).Model(&models.ClientSummary{}).
		Where("manager_id = ?", managerID).
		Update("active", active)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update clients of manager: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}
