package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sifan077/ResourceHub/internal/app/model"
)

// DynamoAPI is the subset of the DynamoDB client used by the repository.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

type dynamoResourceRepository struct {
	api       DynamoAPI
	table     string
	typeIndex string
	now       func() time.Time
}

// NewDynamoResourceRepository returns a ResourceRepository over a DynamoDB table
// keyed by (id, location) with a (type, location) secondary index.
func NewDynamoResourceRepository(api DynamoAPI, table, typeIndex string) ResourceRepository {
	return &dynamoResourceRepository{
		api:       api,
		table:     table,
		typeIndex: typeIndex,
		now:       time.Now,
	}
}

func (r *dynamoResourceRepository) Put(ctx context.Context, resource *model.Resource) error {
	item, err := attributevalue.MarshalMap(resource)
	if err != nil {
		return fmt.Errorf("marshal resource: %w", err)
	}

	_, err = r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	return err
}

func (r *dynamoResourceRepository) Get(ctx context.Context, id, location string) (*model.Resource, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"id":       &types.AttributeValueMemberS{Value: id},
			"location": &types.AttributeValueMemberS{Value: location},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, ErrResourceNotFound
	}

	var resource model.Resource
	if err := attributevalue.UnmarshalMap(out.Item, &resource); err != nil {
		return nil, fmt.Errorf("unmarshal resource: %w", err)
	}
	// TTL deletion lags behind expiry
	if resource.Expired(r.now()) {
		return nil, ErrResourceNotFound
	}
	return &resource, nil
}

func (r *dynamoResourceRepository) QueryByType(ctx context.Context, resourceType, locationPrefix string) ([]model.Resource, error) {
	// "type" and "location" are reserved words.
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		IndexName:              aws.String(r.typeIndex),
		KeyConditionExpression: aws.String("#type = :type"),
		ExpressionAttributeNames: map[string]string{
			"#type": "type",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":type": &types.AttributeValueMemberS{Value: resourceType},
		},
	}
	if locationPrefix != "" {
		input.KeyConditionExpression = aws.String("#type = :type AND begins_with(#location, :location)")
		input.ExpressionAttributeNames["#location"] = "location"
		input.ExpressionAttributeValues[":location"] = &types.AttributeValueMemberS{Value: locationPrefix}
	}

	result := make([]model.Resource, 0)
	paginator := dynamodb.NewQueryPaginator(r.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		if result, err = r.appendLive(result, page.Items); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *dynamoResourceRepository) ScanByLocationPrefix(ctx context.Context, locationPrefix string) ([]model.Resource, error) {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(r.table),
		FilterExpression: aws.String("begins_with(#location, :location)"),
		ExpressionAttributeNames: map[string]string{
			"#location": "location",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":location": &types.AttributeValueMemberS{Value: locationPrefix},
		},
	}

	result := make([]model.Resource, 0)
	paginator := dynamodb.NewScanPaginator(r.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		if result, err = r.appendLive(result, page.Items); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *dynamoResourceRepository) appendLive(dst []model.Resource, items []map[string]types.AttributeValue) ([]model.Resource, error) {
	var page []model.Resource
	if err := attributevalue.UnmarshalListOfMaps(items, &page); err != nil {
		return nil, fmt.Errorf("unmarshal resources: %w", err)
	}

	now := r.now()
	for i := range page {
		if !page[i].Expired(now) {
			dst = append(dst, page[i])
		}
	}
	return dst, nil
}
