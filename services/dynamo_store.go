package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"matchmaking_server/apperrors"
	"matchmaking_server/models"
)

// activeLockPrefix marks the per-pair lock items kept in the Matches table.
// They carry no manager attributes, so the GSIs never see them.
const activeLockPrefix = "ACTIVE#"

// DynamoTables holds the resolved (prefixed) table names.
type DynamoTables struct {
	Matches     string
	Messages    string
	ReadMarkers string
	Reviews     string
	Clients     string
}

// DefaultDynamoTables applies prefix to every table name.
func DefaultDynamoTables(prefix string) DynamoTables {
	return DynamoTables{
		Matches:     prefix + models.MatchesTable,
		Messages:    prefix + models.MessagesTable,
		ReadMarkers: prefix + models.ReadMarkersTable,
		Reviews:     prefix + models.ReviewsTable,
		Clients:     prefix + models.ClientsTable,
	}
}

// DynamoStore implements Store on DynamoDB. Status changes use conditional
// writes; creation and terminal transitions maintain the pair lock item in
// the same transaction.
type DynamoStore struct {
	Dynamo *DynamoService
	Tables DynamoTables
}

func NewDynamoStore(ds *DynamoService, tables DynamoTables) *DynamoStore {
	return &DynamoStore{Dynamo: ds, Tables: tables}
}

func (s *DynamoStore) Close() error { return nil }

func matchKey(matchID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"matchId": stringAttr(matchID)}
}

func (s *DynamoStore) CreateMatch(ctx context.Context, m *models.Match) error {
	item, err := attributevalue.MarshalMap(m)
	if err != nil {
		return fmt.Errorf("failed to marshal match: %w", err)
	}
	lock := map[string]types.AttributeValue{
		"matchId":       stringAttr(activeLockPrefix + models.PairKey(m.FromClientID, m.ToClientID)),
		"activeMatchId": stringAttr(m.MatchID),
	}

	s.Dynamo.Log.Info("🆕 Creating match", zap.String("matchId", m.MatchID), zap.String("from", m.FromClientID), zap.String("to", m.ToClientID))
	err = s.Dynamo.TransactWrite(ctx,
		types.TransactWriteItem{Put: &types.Put{
			TableName:           aws.String(s.Tables.Matches),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(matchId)"),
		}},
		types.TransactWriteItem{Put: &types.Put{
			TableName:           aws.String(s.Tables.Matches),
			Item:                lock,
			ConditionExpression: aws.String("attribute_not_exists(matchId)"),
		}},
	)
	if canceledAt(err, 1) {
		return apperrors.ErrDuplicateActiveProposal
	}
	if err != nil {
		s.Dynamo.Log.Error("❌ Failed to create match", zap.String("matchId", m.MatchID), zap.Error(err))
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

func (s *DynamoStore) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	item, err := s.Dynamo.GetItem(ctx, s.Tables.Matches, matchKey(matchID))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperrors.NotFound("match", matchID)
	}
	var m models.Match
	if err := attributevalue.UnmarshalMap(item, &m); err != nil {
		return nil, fmt.Errorf("failed to parse match: %w", err)
	}
	return &m, nil
}

func (s *DynamoStore) SetStatus(ctx context.Context, matchID string, to models.MatchStatus, at time.Time) (*models.Match, error) {
	current, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(current.Status, to) {
		return nil, apperrors.InvalidTransition(string(current.Status), string(to))
	}

	sources := make([]string, 0, 3)
	for _, st := range models.SourcesOf(to) {
		sources = append(sources, string(st))
	}
	names := map[string]string{"#status": "status", "#updatedAt": "updatedAt"}
	values := map[string]types.AttributeValue{
		":to": stringAttr(string(to)),
		":at": stringAttr(at.UTC().Format(time.RFC3339Nano)),
	}
	condition := inCondition("#status", "src", sources, values)
	update := "SET #status = :to, #updatedAt = :at"

	if !to.IsTerminal() {
		_, err = s.Dynamo.UpdateItem(ctx, s.Tables.Matches, matchKey(matchID), update, condition, values, names)
		if isConditionFailed(err) {
			return nil, s.transitionConflict(ctx, matchID, to)
		}
	} else {
		err = s.Dynamo.TransactWrite(ctx,
			types.TransactWriteItem{Update: &types.Update{
				TableName:                 aws.String(s.Tables.Matches),
				Key:                       matchKey(matchID),
				UpdateExpression:          aws.String(update),
				ConditionExpression:       aws.String(condition),
				ExpressionAttributeNames:  names,
				ExpressionAttributeValues: values,
			}},
			types.TransactWriteItem{Delete: &types.Delete{
				TableName: aws.String(s.Tables.Matches),
				Key:       matchKey(activeLockPrefix + models.PairKey(current.FromClientID, current.ToClientID)),
			}},
		)
		if canceledAt(err, 0) {
			return nil, s.transitionConflict(ctx, matchID, to)
		}
	}
	if err != nil {
		s.Dynamo.Log.Error("❌ Failed to update match status", zap.String("matchId", matchID), zap.Error(err))
		return nil, fmt.Errorf("failed to update match status: %w", err)
	}

	current.Status = to
	current.UpdatedAt = at
	return current, nil
}

// transitionConflict re-reads after a lost compare-and-swap so the error
// names the status that won.
func (s *DynamoStore) transitionConflict(ctx context.Context, matchID string, to models.MatchStatus) error {
	m, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}
	return apperrors.InvalidTransition(string(m.Status), string(to))
}

func (s *DynamoStore) queryMatches(ctx context.Context, index, keyAttr, keyValue, filter string, values map[string]types.AttributeValue) ([]models.Match, error) {
	values[":key"] = stringAttr(keyValue)
	names := map[string]string{"#key": keyAttr}
	if filter != "" {
		names["#status"] = "status"
	}
	items, err := s.Dynamo.QueryItemsWithOptions(ctx, s.Tables.Matches, index, "#key = :key", filter, values, names, true)
	if err != nil {
		return nil, err
	}
	var out []models.Match
	if err := attributevalue.UnmarshalListOfMaps(items, &out); err != nil {
		return nil, fmt.Errorf("failed to parse matches: %w", err)
	}
	return out, nil
}

// mergeMatches dedupes by id and orders createdAt desc, matchId desc.
func mergeMatches(lists ...[]models.Match) []models.Match {
	seen := map[string]bool{}
	out := []models.Match{}
	for _, list := range lists {
		for _, m := range list {
			if seen[m.MatchID] {
				continue
			}
			seen[m.MatchID] = true
			out = append(out, m)
		}
	}
	sortMatchesDesc(out)
	return out
}

func sortMatchesDesc(ms []models.Match) {
	sort.SliceStable(ms, func(i, j int) bool {
		if !ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].CreatedAt.After(ms[j].CreatedAt)
		}
		return ms[i].MatchID > ms[j].MatchID
	})
}

func (s *DynamoStore) ListByManager(ctx context.Context, managerID string, view models.View, page PageRequest) ([]models.Match, int, error) {
	var (
		all []models.Match
		err error
	)
	notMatched := map[string]types.AttributeValue{":matched": stringAttr(string(models.StatusMatched))}
	switch view {
	case models.ViewSent:
		all, err = s.queryMatches(ctx, models.ProposingManagerIndex, "proposingManagerId", managerID, "#status <> :matched", notMatched)
	case models.ViewReceived:
		all, err = s.queryMatches(ctx, models.RespondingManagerIndex, "respondingManagerId", managerID, "#status <> :matched", notMatched)
	default:
		var proposed, responded []models.Match
		proposed, err = s.queryMatches(ctx, models.ProposingManagerIndex, "proposingManagerId", managerID, "#status = :matched",
			map[string]types.AttributeValue{":matched": stringAttr(string(models.StatusMatched))})
		if err == nil {
			responded, err = s.queryMatches(ctx, models.RespondingManagerIndex, "respondingManagerId", managerID, "#status = :matched",
				map[string]types.AttributeValue{":matched": stringAttr(string(models.StatusMatched))})
		}
		all = append(proposed, responded...)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list %s matches: %w", view, err)
	}
	all = mergeMatches(all)
	return window(all, page), len(all), nil
}

func window(all []models.Match, page PageRequest) []models.Match {
	if page.Limit <= 0 {
		return all
	}
	if page.Offset >= len(all) {
		return []models.Match{}
	}
	end := page.Offset + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[page.Offset:end]
}

func (s *DynamoStore) ListByParticipant(ctx context.Context, managerID string) ([]models.Match, error) {
	proposed, err := s.queryMatches(ctx, models.ProposingManagerIndex, "proposingManagerId", managerID, "", map[string]types.AttributeValue{})
	if err != nil {
		return nil, err
	}
	responded, err := s.queryMatches(ctx, models.RespondingManagerIndex, "respondingManagerId", managerID, "", map[string]types.AttributeValue{})
	if err != nil {
		return nil, err
	}
	return mergeMatches(proposed, responded), nil
}

func activeFilter() (string, map[string]types.AttributeValue) {
	values := map[string]types.AttributeValue{}
	statuses := make([]string, 0, 3)
	for _, st := range models.ActiveStatuses() {
		statuses = append(statuses, string(st))
	}
	return inCondition("#status", "active", statuses, values), values
}

func (s *DynamoStore) ListActiveByClient(ctx context.Context, clientID string) ([]models.Match, error) {
	filter, values := activeFilter()
	from, err := s.queryMatches(ctx, models.FromClientIndex, "fromClientId", clientID, filter, values)
	if err != nil {
		return nil, err
	}
	filter, values = activeFilter()
	to, err := s.queryMatches(ctx, models.ToClientIndex, "toClientId", clientID, filter, values)
	if err != nil {
		return nil, err
	}
	return mergeMatches(from, to), nil
}

func (s *DynamoStore) ListActiveByManager(ctx context.Context, managerID string) ([]models.Match, error) {
	filter, values := activeFilter()
	proposed, err := s.queryMatches(ctx, models.ProposingManagerIndex, "proposingManagerId", managerID, filter, values)
	if err != nil {
		return nil, err
	}
	filter, values = activeFilter()
	responded, err := s.queryMatches(ctx, models.RespondingManagerIndex, "respondingManagerId", managerID, filter, values)
	if err != nil {
		return nil, err
	}
	return mergeMatches(proposed, responded), nil
}

// AppendMessage writes the message in a transaction with a ConditionCheck on
// the match status, so it cannot interleave with a closing transition.
func (s *DynamoStore) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	msg.SortKey = models.MessageSortKey(msg.CreatedAt, msg.MessageID)
	item, err := attributevalue.MarshalMap(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	values := map[string]types.AttributeValue{}
	statuses := make([]string, 0, 4)
	for _, st := range models.ChatEnabledStatuses() {
		statuses = append(statuses, string(st))
	}
	condition := inCondition("#status", "open", statuses, values)

	s.Dynamo.Log.Debug("📩 Storing message", zap.String("matchId", msg.MatchID), zap.String("messageId", msg.MessageID))
	err = s.Dynamo.TransactWrite(ctx,
		types.TransactWriteItem{ConditionCheck: &types.ConditionCheck{
			TableName:                 aws.String(s.Tables.Matches),
			Key:                       matchKey(msg.MatchID),
			ConditionExpression:       aws.String(condition),
			ExpressionAttributeNames:  map[string]string{"#status": "status"},
			ExpressionAttributeValues: values,
		}},
		types.TransactWriteItem{Put: &types.Put{
			TableName:           aws.String(s.Tables.Messages),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(sortKey)"),
		}},
	)
	if canceledAt(err, 0) {
		m, getErr := s.GetMatch(ctx, msg.MatchID)
		if getErr != nil {
			return getErr
		}
		return apperrors.Wrap(apperrors.CodeChatClosed, "chat is closed for this match", fmt.Errorf("status %s", m.Status))
	}
	if err != nil {
		s.Dynamo.Log.Error("❌ Failed to store message", zap.String("matchId", msg.MatchID), zap.Error(err))
		return fmt.Errorf("failed to store message: %w", err)
	}
	return nil
}

func (s *DynamoStore) ListThread(ctx context.Context, matchID string) ([]models.ChatMessage, error) {
	items, err := s.Dynamo.QueryItemsWithOptions(ctx, s.Tables.Messages, "", "#matchId = :matchId", "",
		map[string]types.AttributeValue{":matchId": stringAttr(matchID)},
		map[string]string{"#matchId": "matchId"},
		false,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	msgs := []models.ChatMessage{}
	if err := attributevalue.UnmarshalListOfMaps(items, &msgs); err != nil {
		return nil, fmt.Errorf("failed to parse messages: %w", err)
	}
	return msgs, nil
}

func (s *DynamoStore) ListThreads(ctx context.Context, matchIDs []string) (map[string][]models.ChatMessage, error) {
	out := make(map[string][]models.ChatMessage, len(matchIDs))
	for _, id := range matchIDs {
		msgs, err := s.ListThread(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = msgs
	}
	return out, nil
}

func markerKey(managerID, matchID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"managerId": stringAttr(managerID),
		"matchId":   stringAttr(matchID),
	}
}

func (s *DynamoStore) GetReadMarker(ctx context.Context, managerID, matchID string) (*models.ReadMarker, error) {
	item, err := s.Dynamo.GetItem(ctx, s.Tables.ReadMarkers, markerKey(managerID, matchID))
	if err != nil || item == nil {
		return nil, err
	}
	var marker models.ReadMarker
	if err := attributevalue.UnmarshalMap(item, &marker); err != nil {
		return nil, fmt.Errorf("failed to parse read marker: %w", err)
	}
	return &marker, nil
}

func (s *DynamoStore) ListReadMarkers(ctx context.Context, managerID string) (map[string]models.ReadMarker, error) {
	items, err := s.Dynamo.QueryItemsWithOptions(ctx, s.Tables.ReadMarkers, "", "#managerId = :managerId", "",
		map[string]types.AttributeValue{":managerId": stringAttr(managerID)},
		map[string]string{"#managerId": "managerId"},
		false,
	)
	if err != nil {
		return nil, err
	}
	var markers []models.ReadMarker
	if err := attributevalue.UnmarshalListOfMaps(items, &markers); err != nil {
		return nil, fmt.Errorf("failed to parse read markers: %w", err)
	}
	out := make(map[string]models.ReadMarker, len(markers))
	for _, m := range markers {
		out[m.MatchID] = m
	}
	return out, nil
}

// SaveReadMarker only overwrites an older watermark; losing the condition
// means a newer one is already stored, which is fine.
func (s *DynamoStore) SaveReadMarker(ctx context.Context, marker *models.ReadMarker) error {
	marker.SeenKey = models.MessageSortKey(marker.SeenAt, marker.SeenMessageID)
	err := s.Dynamo.PutItem(ctx, s.Tables.ReadMarkers, marker,
		"attribute_not_exists(managerId) OR seenKey < :seenKey",
		map[string]types.AttributeValue{":seenKey": stringAttr(marker.SeenKey)},
	)
	if isConditionFailed(err) {
		return nil
	}
	return err
}

func (s *DynamoStore) AddReview(ctx context.Context, r *models.Review) error {
	r.SortKey = models.MessageSortKey(r.CreatedAt, r.ReviewID)
	return s.Dynamo.PutItem(ctx, s.Tables.Reviews, r, "attribute_not_exists(sortKey)", nil)
}

func (s *DynamoStore) ListReviewsByClient(ctx context.Context, clientID string) ([]models.Review, error) {
	items, err := s.Dynamo.QueryItemsWithOptions(ctx, s.Tables.Reviews, "", "#clientId = :clientId", "",
		map[string]types.AttributeValue{":clientId": stringAttr(clientID)},
		map[string]string{"#clientId": "clientId"},
		true,
	)
	if err != nil {
		return nil, err
	}
	reviews := []models.Review{}
	if err := attributevalue.UnmarshalListOfMaps(items, &reviews); err != nil {
		return nil, fmt.Errorf("failed to parse reviews: %w", err)
	}
	return reviews, nil
}
