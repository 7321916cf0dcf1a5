package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"matchmaking_server/apperrors"
	"matchmaking_server/models"
	"matchmaking_server/utils"
)

// DynamoDirectory reads client records written by the profile service.
// Profiles are loosely typed there, so fields are extracted one by one.
type DynamoDirectory struct {
	Dynamo *DynamoService
	Table  string
}

func NewDynamoDirectory(ds *DynamoService, table string) *DynamoDirectory {
	return &DynamoDirectory{Dynamo: ds, Table: table}
}

func clientKey(clientID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"clientId": stringAttr(clientID)}
}

func clientFromItem(item map[string]types.AttributeValue) models.ClientSummary {
	return models.ClientSummary{
		ClientID:  utils.ExtractString(item, "clientId"),
		ManagerID: utils.ExtractString(item, "managerId"),
		Name:      utils.ExtractString(item, "name"),
		Photo:     utils.ExtractFirstPhoto(item, "photos"),
		Job:       utils.ExtractString(item, "job"),
		School:    utils.ExtractString(item, "school"),
		Active:    utils.ExtractBool(item, "active", true),
	}
}

func (d *DynamoDirectory) GetClient(ctx context.Context, clientID string) (*models.ClientSummary, error) {
	item, err := d.Dynamo.GetItem(ctx, d.Table, clientKey(clientID))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperrors.NotFound("client", clientID)
	}
	c := clientFromItem(item)
	return &c, nil
}

func (d *DynamoDirectory) GetClients(ctx context.Context, clientIDs []string) (map[string]models.ClientSummary, error) {
	out := make(map[string]models.ClientSummary, len(clientIDs))
	seen := map[string]bool{}
	keys := make([]map[string]types.AttributeValue, 0, len(clientIDs))
	for _, id := range clientIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, clientKey(id))
	}
	if len(keys) == 0 {
		return out, nil
	}

	items, err := d.Dynamo.BatchGetItems(ctx, d.Table, keys)
	if err != nil {
		d.Dynamo.Log.Warn("⚠️ Failed to fetch client summaries", zap.Int("count", len(keys)), zap.Error(err))
		return nil, err
	}
	for _, item := range items {
		c := clientFromItem(item)
		out[c.ClientID] = c
	}
	return out, nil
}

func (d *DynamoDirectory) SetClientActive(ctx context.Context, clientID string, active bool) error {
	_, err := d.Dynamo.UpdateItem(ctx, d.Table, clientKey(clientID),
		"SET #active = :active",
		"attribute_exists(clientId)",
		map[string]types.AttributeValue{":active": &types.AttributeValueMemberBOOL{Value: active}},
		map[string]string{"#active": "active"},
	)
	if isConditionFailed(err) {
		return apperrors.NotFound("client", clientID)
	}
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	return nil
}

// SetManagerClientsActive looks the manager's clients up on the managerId
// index and updates them one by one.
func (d *DynamoDirectory) SetManagerClientsActive(ctx context.Context, managerID string, active bool) (int, error) {
	items, err := d.Dynamo.QueryItemsWithOptions(ctx, d.Table, models.ClientsByManagerIndex,
		"#managerId = :managerId", "",
		map[string]types.AttributeValue{":managerId": stringAttr(managerID)},
		map[string]string{"#managerId": "managerId"},
		false,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to list clients of manager: %w", err)
	}
	updated := 0
	for _, item := range items {
		clientID := utils.ExtractString(item, "clientId")
		if clientID == "" {
			continue
		}
		err := d.SetClientActive(ctx, clientID, active)
		if errors.Is(err, apperrors.ErrNotFound) {
			// Removed between the query and the update.
			continue
		}
		if err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}
