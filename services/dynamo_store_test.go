package services

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"matchmaking_server/apperrors"
	"matchmaking_server/models"
)

// fakeDynamo answers GetItem from a queue of items and records writes.
type fakeDynamo struct {
	gets      []map[string]types.AttributeValue
	queries   [][]map[string]types.AttributeValue
	putErr    error
	updateErr error
	txErr     error

	puts      []*dynamodb.PutItemInput
	updates   []*dynamodb.UpdateItemInput
	queried   []*dynamodb.QueryInput
	transacts []*dynamodb.TransactWriteItemsInput
}

func (f *fakeDynamo) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if len(f.gets) == 0 {
		return &dynamodb.GetItemOutput{}, nil
	}
	item := f.gets[0]
	if len(f.gets) > 1 {
		f.gets = f.gets[1:]
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queried = append(f.queried, in)
	if len(f.queries) == 0 {
		return &dynamodb.QueryOutput{}, nil
	}
	items := f.queries[0]
	f.queries = f.queries[1:]
	return &dynamodb.QueryOutput{Items: items}, nil
}

func (f *fakeDynamo) BatchGetItem(_ context.Context, _ *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	return &dynamodb.BatchGetItemOutput{}, nil
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.transacts = append(f.transacts, in)
	if f.txErr != nil {
		return nil, f.txErr
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func newDynamoStoreForTest(t *testing.T, fake *fakeDynamo) *DynamoStore {
	ds := &DynamoService{Client: fake, Log: zaptest.NewLogger(t)}
	return NewDynamoStore(ds, DefaultDynamoTables("test-"))
}

func matchItem(t *testing.T, status models.MatchStatus) map[string]types.AttributeValue {
	t.Helper()
	m := storedMatch("m1", "a", "b", time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	m.Status = status
	item, err := attributevalue.MarshalMap(m)
	require.NoError(t, err)
	return item
}

func canceledTx(codes ...string) error {
	reasons := make([]types.CancellationReason, len(codes))
	for i, c := range codes {
		reasons[i] = types.CancellationReason{Code: aws.String(c)}
	}
	return &types.TransactionCanceledException{
		Message:             aws.String("Transaction cancelled"),
		CancellationReasons: reasons,
	}
}

func TestDynamoStore_CreateMatchWritesPairLock(t *testing.T) {
	fake := &fakeDynamo{}
	store := newDynamoStoreForTest(t, fake)

	require.NoError(t, store.CreateMatch(context.Background(), storedMatch("m1", "a", "b", t0)))
	require.Len(t, fake.transacts, 1)
	items := fake.transacts[0].TransactItems
	require.Len(t, items, 2)
	assert.Equal(t, "test-Matches", aws.ToString(items[1].Put.TableName))
	assert.Equal(t, &types.AttributeValueMemberS{Value: "ACTIVE#a|b"}, items[1].Put.Item["matchId"])

	fake.txErr = canceledTx("None", "ConditionalCheckFailed")
	err := store.CreateMatch(context.Background(), storedMatch("m2", "a", "b", t0))
	assert.ErrorIs(t, err, apperrors.ErrDuplicateActiveProposal)
}

func TestDynamoStore_SetStatusLostRaceReportsWinner(t *testing.T) {
	fake := &fakeDynamo{
		gets:      []map[string]types.AttributeValue{matchItem(t, models.StatusUnread), matchItem(t, models.StatusAccepted)},
		updateErr: &types.ConditionalCheckFailedException{Message: aws.String("condition failed")},
	}
	store := newDynamoStoreForTest(t, fake)

	_, err := store.SetStatus(context.Background(), "m1", models.StatusPending, t0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "ACCEPTED")
	require.Len(t, fake.updates, 1)
	assert.Contains(t, aws.ToString(fake.updates[0].ConditionExpression), "#status IN (")
}

func TestDynamoStore_TerminalTransitionReleasesLock(t *testing.T) {
	fake := &fakeDynamo{gets: []map[string]types.AttributeValue{matchItem(t, models.StatusPending)}}
	store := newDynamoStoreForTest(t, fake)

	m, err := store.SetStatus(context.Background(), "m1", models.StatusCanceled, t0)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, m.Status)

	require.Len(t, fake.transacts, 1)
	items := fake.transacts[0].TransactItems
	require.Len(t, items, 2)
	require.NotNil(t, items[1].Delete)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "ACTIVE#a|b"}, items[1].Delete.Key["matchId"])
	assert.Empty(t, fake.updates)
}

func TestDynamoStore_SetStatusRejectsMissingEdge(t *testing.T) {
	fake := &fakeDynamo{gets: []map[string]types.AttributeValue{matchItem(t, models.StatusMatched)}}
	store := newDynamoStoreForTest(t, fake)

	_, err := store.SetStatus(context.Background(), "m1", models.StatusCanceled, t0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Empty(t, fake.transacts, "no write is attempted")
}

func TestDynamoStore_AppendMessageOnClosedMatch(t *testing.T) {
	fake := &fakeDynamo{
		gets:  []map[string]types.AttributeValue{matchItem(t, models.StatusCanceled)},
		txErr: canceledTx("ConditionalCheckFailed", "None"),
	}
	store := newDynamoStoreForTest(t, fake)

	msg := &models.ChatMessage{MessageID: "x1", MatchID: "m1", SenderID: managerA, Content: "hi", CreatedAt: t0}
	err := store.AppendMessage(context.Background(), msg)
	assert.ErrorIs(t, err, apperrors.ErrChatClosed)
	assert.Equal(t, models.MessageSortKey(t0, "x1"), msg.SortKey)

	require.Len(t, fake.transacts, 1)
	assert.NotNil(t, fake.transacts[0].TransactItems[0].ConditionCheck)
}

func TestDynamoStore_SaveReadMarkerIgnoresOlderPosition(t *testing.T) {
	fake := &fakeDynamo{putErr: &types.ConditionalCheckFailedException{Message: aws.String("newer marker stored")}}
	store := newDynamoStoreForTest(t, fake)

	err := store.SaveReadMarker(context.Background(), &models.ReadMarker{ManagerID: managerB, MatchID: "m1", SeenAt: t0, SeenMessageID: "x1"})
	require.NoError(t, err)
	require.Len(t, fake.puts, 1)
	assert.Equal(t, "test-MatchReadMarkers", aws.ToString(fake.puts[0].TableName))
}

func TestDynamoStore_ListByManagerSortsAndWindows(t *testing.T) {
	var items []map[string]types.AttributeValue
	for i, id := range []string{"m1", "m3", "m2"} {
		m := storedMatch(id, id, "b", t0.Add(time.Duration(i)*time.Minute))
		if id == "m2" {
			m.CreatedAt = t0.Add(time.Minute)
		}
		item, err := attributevalue.MarshalMap(m)
		require.NoError(t, err)
		items = append(items, item)
	}
	fake := &fakeDynamo{queries: [][]map[string]types.AttributeValue{items}}
	store := newDynamoStoreForTest(t, fake)

	page, total, err := store.ListByManager(context.Background(), managerA, models.ViewSent, PageRequest{Offset: 0, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "m3", page[0].MatchID, "createdAt desc, then matchId desc")
	assert.Equal(t, "m2", page[1].MatchID)
}

func TestDynamoDirectory_SetManagerClientsActive(t *testing.T) {
	clients := []map[string]types.AttributeValue{
		{"clientId": stringAttr("bob"), "managerId": stringAttr(managerB)},
		{"clientId": stringAttr("ben"), "managerId": stringAttr(managerB)},
	}
	fake := &fakeDynamo{queries: [][]map[string]types.AttributeValue{clients}}
	ds := &DynamoService{Client: fake, Log: zaptest.NewLogger(t)}
	dir := NewDynamoDirectory(ds, "test-Clients")

	n, err := dir.SetManagerClientsActive(context.Background(), managerB, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, fake.queried, 1)
	assert.Equal(t, models.ClientsByManagerIndex, aws.ToString(fake.queried[0].IndexName))
	require.Len(t, fake.updates, 2)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "ben"}, fake.updates[1].Key["clientId"])
	assert.Equal(t, &types.AttributeValueMemberBOOL{Value: false}, fake.updates[1].ExpressionAttributeValues[":active"])
}
