package subscribers

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"philcali.me/notifications/internal/data"
	"philcali.me/notifications/internal/dynamodb/token"
	"philcali.me/notifications/internal/notifications"
)

type DynamoDBAPI interface {
	dynamodb.QueryAPIClient
	dynamodb.ScanAPIClient
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

type SubscriberDynamoDBService struct {
	DynamoDB       DynamoDBAPI
	TableName      string
	TokenMarshaler token.TokenMarshaler
	Now            func() time.Time
}

func NewSubscriberService(tableName string, client DynamoDBAPI, marshaler token.TokenMarshaler) data.SubscriberRepository {
	return &SubscriberDynamoDBService{
		DynamoDB:       client,
		TableName:      tableName,
		TokenMarshaler: marshaler,
		Now:            time.Now,
	}
}

func PartitionKey(category string) string {
	return fmt.Sprintf("%s:%s", category, data.SubscriberEntity)
}

func key(category string, url string) (map[string]types.AttributeValue, error) {
	pk, err := attributevalue.Marshal(PartitionKey(category))
	if err != nil {
		return nil, err
	}
	sk, err := attributevalue.Marshal(url)
	if err != nil {
		return nil, err
	}
	return map[string]types.AttributeValue{"PK": pk, "SK": sk}, nil
}

// Put upserts the subscriber row. The name is replaced wholesale and the original
// createTime survives re-subscription.
func (s *SubscriberDynamoDBService) Put(ctx context.Context, category string, subscriber notifications.Subscriber) (data.SubscriberDTO, error) {
	shim := data.SubscriberDTO{
		PK:         PartitionKey(category),
		SK:         subscriber.URL,
		EntityType: data.SubscriberEntity,
		Category:   category,
		URL:        subscriber.URL,
		Name:       subscriber.Name,
	}
	itemKey, err := key(category, subscriber.URL)
	if err != nil {
		return shim, err
	}
	now := s.Now()
	update := expression.Set(expression.Name("updateTime"), expression.Value(now)).
		Set(expression.Name("createTime"), expression.IfNotExists(expression.Name("createTime"), expression.Value(now))).
		Set(expression.Name("entityType"), expression.Value(data.SubscriberEntity)).
		Set(expression.Name("category"), expression.Value(category)).
		Set(expression.Name("url"), expression.Value(subscriber.URL)).
		Set(expression.Name("name"), expression.Value(subscriber.Name))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return shim, err
	}
	response, err := s.DynamoDB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.TableName),
		Key:                       itemKey,
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		UpdateExpression:          expr.Update(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return shim, fmt.Errorf("failed to put subscriber %s: %w", subscriber.URL, err)
	}
	err = attributevalue.UnmarshalMap(response.Attributes, &shim)
	return shim, err
}

func (s *SubscriberDynamoDBService) Delete(ctx context.Context, category string, url string) error {
	itemKey, err := key(category, url)
	if err != nil {
		return err
	}
	_, err = s.DynamoDB.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		Key:       itemKey,
		TableName: aws.String(s.TableName),
	})
	if err != nil {
		return fmt.Errorf("failed to delete subscriber %s: %w", url, err)
	}
	return nil
}

func (s *SubscriberDynamoDBService) List(ctx context.Context, category string, params data.QueryParams) (data.QueryResults[data.SubscriberDTO], error) {
	keyEx := expression.Key("PK").Equal(expression.Value(PartitionKey(category)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return data.QueryResults[data.SubscriberDTO]{}, err
	}
	startKey, err := s.TokenMarshaler.Unmarshal(category, params.NextToken)
	if err != nil {
		return data.QueryResults[data.SubscriberDTO]{}, err
	}
	output, err := s.DynamoDB.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.TableName),
		Limit:                     params.GetLimit(),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ExclusiveStartKey:         startKey,
	})
	if err != nil {
		return data.QueryResults[data.SubscriberDTO]{}, fmt.Errorf("failed to query subscribers of %s: %w", category, err)
	}
	items := make([]data.SubscriberDTO, 0, len(output.Items))
	if err := attributevalue.UnmarshalListOfMaps(output.Items, &items); err != nil {
		return data.QueryResults[data.SubscriberDTO]{}, err
	}
	nextToken, err := s.TokenMarshaler.Marshal(category, output.LastEvaluatedKey)
	if err != nil {
		return data.QueryResults[data.SubscriberDTO]{}, err
	}
	return data.QueryResults[data.SubscriberDTO]{
		Items:     items,
		NextToken: nextToken,
	}, nil
}

// ListAll scans every subscriber row across categories.
func (s *SubscriberDynamoDBService) ListAll(ctx context.Context) ([]data.SubscriberDTO, error) {
	filter := expression.Name("entityType").Equal(expression.Value(data.SubscriberEntity))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, err
	}
	paginator := dynamodb.NewScanPaginator(s.DynamoDB, &dynamodb.ScanInput{
		TableName:                 aws.String(s.TableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	var items []data.SubscriberDTO
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscribers: %w", err)
		}
		var pageItems []data.SubscriberDTO
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &pageItems); err != nil {
			return nil, err
		}
		items = append(items, pageItems...)
	}
	return items, nil
}
