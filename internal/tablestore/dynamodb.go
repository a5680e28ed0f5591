package tablestore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBAPI is the slice of the DynamoDB client used by DynamoDBStore.
type DynamoDBAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

type DynamoDBStore struct {
	api   DynamoDBAPI
	table string
}

var _ Store = (*DynamoDBStore)(nil)

func NewDynamoDBStore(api DynamoDBAPI, table string) *DynamoDBStore {
	return &DynamoDBStore{api: api, table: table}
}

func (s *DynamoDBStore) EnsureTable(ctx context.Context) error {
	_, err := s.api.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("CityDate"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("CityDate"), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			// Table already exists, keep using it.
			return nil
		}
		return fmt.Errorf("%w: create table %s: %v", ErrProvision, s.table, err)
	}
	return nil
}

func (s *DynamoDBStore) PutRecords(ctx context.Context, records []Record) error {
	for _, r := range records {
		item := map[string]types.AttributeValue{
			"CityDate":    &types.AttributeValueMemberS{Value: r.CityDate},
			"City":        &types.AttributeValueMemberS{Value: r.City},
			"Timestamp":   &types.AttributeValueMemberN{Value: strconv.FormatInt(r.Timestamp, 10)},
			"Temperature": &types.AttributeValueMemberN{Value: r.Temperature},
			"FeelsLike":   &types.AttributeValueMemberN{Value: r.FeelsLike},
			"Humidity":    &types.AttributeValueMemberN{Value: r.Humidity},
			"Description": &types.AttributeValueMemberS{Value: r.Description},
		}
		_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(s.table),
			Item:      item,
		})
		if err != nil {
			return fmt.Errorf("%w: put %s: %v", ErrWrite, r.CityDate, err)
		}
	}
	return nil
}

func (s *DynamoDBStore) GetRecord(ctx context.Context, cityDate string) (*Record, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"CityDate": &types.AttributeValueMemberS{Value: cityDate},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", cityDate, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	ts, err := strconv.ParseInt(attrN(out.Item, "Timestamp"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("get %s: parse timestamp: %w", cityDate, err)
	}

	return &Record{
		CityDate:    attrS(out.Item, "CityDate"),
		City:        attrS(out.Item, "City"),
		Timestamp:   ts,
		Temperature: attrN(out.Item, "Temperature"),
		FeelsLike:   attrN(out.Item, "FeelsLike"),
		Humidity:    attrN(out.Item, "Humidity"),
		Description: attrS(out.Item, "Description"),
	}, nil
}

func attrS(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func attrN(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberN); ok {
		return v.Value
	}
	return ""
}
