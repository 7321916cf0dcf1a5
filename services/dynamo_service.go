package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// DynamoAPI is the subset of *dynamodb.Client the stores use.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchGetItem(ctx context.Context, in *dynamodb.BatchGetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

type DynamoService struct {
	Client DynamoAPI
	Log    *zap.Logger
}

// InitializeDynamoDBClient initializes the DynamoDB client
func InitializeDynamoDBClient(ctx context.Context, region string) (*dynamodb.Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg), nil
}

// PutItem marshals item and writes it, optionally guarded by a condition.
func (ds *DynamoService) PutItem(ctx context.Context, tableName string, item interface{}, condition string, values map[string]types.AttributeValue) error {
	marshaledItem, err := attributevalue.MarshalMap(item)
	if err != nil {
		ds.Log.Error("❌ Failed to marshal item", zap.String("table", tableName), zap.Error(err))
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: &tableName,
		Item:      marshaledItem,
	}
	if condition != "" {
		input.ConditionExpression = aws.String(condition)
		input.ExpressionAttributeValues = values
	}

	if _, err = ds.Client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to put item in table '%s': %w", tableName, err)
	}
	return nil
}

// GetItem retrieves an item with a strongly consistent read. A missing item
// is reported as (nil, nil).
func (ds *DynamoService) GetItem(ctx context.Context, tableName string, key map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	output, err := ds.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &tableName,
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item from table '%s': %w", tableName, err)
	}
	if len(output.Item) == 0 {
		return nil, nil
	}
	return output.Item, nil
}

// UpdateItem runs an update expression and returns the new attributes.
func (ds *DynamoService) UpdateItem(
	ctx context.Context,
	tableName string,
	key map[string]types.AttributeValue,
	updateExpression string,
	conditionExpression string,
	expressionAttributeValues map[string]types.AttributeValue,
	expressionAttributeNames map[string]string,
) (map[string]types.AttributeValue, error) {
	if len(key) == 0 {
		return nil, errors.New("update failed: key cannot be empty")
	}
	if updateExpression == "" {
		return nil, errors.New("update failed: updateExpression cannot be empty")
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                 &tableName,
		Key:                       key,
		UpdateExpression:          &updateExpression,
		ExpressionAttributeValues: expressionAttributeValues,
		ExpressionAttributeNames:  expressionAttributeNames,
		ReturnValues:              types.ReturnValueAllNew,
	}
	if conditionExpression != "" {
		input.ConditionExpression = &conditionExpression
	}

	ds.Log.Debug("🔄 Executing UpdateItem", zap.String("table", tableName), zap.String("update", updateExpression), zap.String("condition", conditionExpression))

	output, err := ds.Client.UpdateItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to update item in table '%s': %w", tableName, err)
	}
	if output.Attributes == nil {
		return map[string]types.AttributeValue{}, nil
	}
	return output.Attributes, nil
}

// QueryAll follows LastEvaluatedKey until the query is exhausted.
func (ds *DynamoService) QueryAll(ctx context.Context, input *dynamodb.QueryInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	paginator := dynamodb.NewQueryPaginator(ds.Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			name := aws.ToString(input.TableName)
			if input.IndexName != nil {
				name += "/" + aws.ToString(input.IndexName)
			}
			ds.Log.Error("❌ Query failed", zap.String("table", name), zap.Error(err))
			return nil, fmt.Errorf("failed to query '%s': %w", name, err)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// QueryItemsWithOptions queries with a key condition, an optional filter and
// sort direction, returning every matching item.
func (ds *DynamoService) QueryItemsWithOptions(
	ctx context.Context,
	tableName string,
	indexName string,
	keyConditionExpression string,
	filterExpression string,
	expressionAttributeValues map[string]types.AttributeValue,
	expressionAttributeNames map[string]string,
	latestFirst bool,
) ([]map[string]types.AttributeValue, error) {
	scanIndexForward := !latestFirst
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(tableName),
		KeyConditionExpression:    aws.String(keyConditionExpression),
		ExpressionAttributeValues: expressionAttributeValues,
		ScanIndexForward:          &scanIndexForward,
	}
	if indexName != "" {
		input.IndexName = aws.String(indexName)
	}
	if len(expressionAttributeNames) > 0 {
		input.ExpressionAttributeNames = expressionAttributeNames
	}
	if filterExpression != "" {
		input.FilterExpression = aws.String(filterExpression)
	}
	return ds.QueryAll(ctx, input)
}

// BatchGetItems fetches keys in chunks of 100, retrying unprocessed keys.
func (ds *DynamoService) BatchGetItems(ctx context.Context, tableName string, keys []map[string]types.AttributeValue) ([]map[string]types.AttributeValue, error) {
	const maxBatchSize = 100

	var items []map[string]types.AttributeValue
	for i := 0; i < len(keys); i += maxBatchSize {
		end := i + maxBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		request := map[string]types.KeysAndAttributes{
			tableName: {Keys: keys[i:end]},
		}
		for len(request) > 0 {
			out, err := ds.Client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
			if err != nil {
				return nil, fmt.Errorf("failed to batch get items from table '%s': %w", tableName, err)
			}
			items = append(items, out.Responses[tableName]...)
			request = out.UnprocessedKeys
		}
	}
	return items, nil
}

// TransactWrite executes all items atomically.
func (ds *DynamoService) TransactWrite(ctx context.Context, items ...types.TransactWriteItem) error {
	_, err := ds.Client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	return err
}

// isConditionFailed reports whether err is a failed ConditionExpression on a
// single-item write.
func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// canceledAt reports whether a transaction was canceled because the
// condition of item idx failed.
func canceledAt(err error, idx int) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return false
	}
	if idx >= len(tce.CancellationReasons) {
		return false
	}
	return aws.ToString(tce.CancellationReasons[idx].Code) == "ConditionalCheckFailed"
}

func stringAttr(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

// inCondition builds "#attr IN (:p0, :p1, ...)" and stores the values.
func inCondition(attrName, prefix string, statuses []string, values map[string]types.AttributeValue) string {
	expr := attrName + " IN ("
	for i, s := range statuses {
		p := fmt.Sprintf(":%s%d", prefix, i)
		values[p] = stringAttr(s)
		if i > 0 {
			expr += ", "
		}
		expr += p
	}
	return expr + ")"
}
