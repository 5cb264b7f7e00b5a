package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// sessionRecord is the DynamoDB item shape. The session itself is stored as a
// JSON string so nested slices keep their exact form.
type sessionRecord struct {
	SessionID string `dynamodbav:"sessionId"`
	Version   int64  `dynamodbav:"version"`
	Data      string `dynamodbav:"data"`
	CreatedAt string `dynamodbav:"createdAt"`
	UpdatedAt string `dynamodbav:"updatedAt"`
	ExpiresAt int64  `dynamodbav:"expiresAt,omitempty"`
}

// DynamoStore persists sessions to a DynamoDB table keyed by sessionId, using
// conditional writes on the version attribute.
type DynamoStore struct {
	client    dynamoAPI
	tableName string
	ttl       time.Duration
	now       func() time.Time
}

func NewDynamoStore(client dynamoAPI, tableName string, ttl time.Duration) *DynamoStore {
	if client == nil {
		panic("conversation: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("conversation: table name cannot be empty")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &DynamoStore{client: client, tableName: tableName, ttl: ttl, now: time.Now}
}

func (s *DynamoStore) Find(ctx context.Context, sessionID string) (*Session, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            map[string]types.AttributeValue{"sessionId": &types.AttributeValueMemberS{Value: sessionID}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to load session: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrSessionNotFound
	}
	return decodeSessionItem(out.Item)
}

func (s *DynamoStore) Create(_ context.Context, sessionID string, initial State) (*Session, error) {
	return NewSession(sessionID, initial, s.now().UTC()), nil
}

func (s *DynamoStore) Save(ctx context.Context, session *Session) error {
	now := s.now().UTC()
	next := session.Clone()
	next.Version = session.Version + 1
	next.UpdatedAt = now

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("conversation: failed to encode session: %w", err)
	}
	item, err := attributevalue.MarshalMap(sessionRecord{
		SessionID: next.ID,
		Version:   next.Version,
		Data:      string(data),
		CreatedAt: next.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt: now.Format(time.RFC3339Nano),
		ExpiresAt: now.Add(s.ttl).Unix(),
	})
	if err != nil {
		return fmt.Errorf("conversation: failed to marshal session: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}
	if session.Version == 0 {
		input.ConditionExpression = aws.String("attribute_not_exists(sessionId)")
	} else {
		input.ConditionExpression = aws.String("#version = :expected")
		input.ExpressionAttributeNames = map[string]string{"#version": "version"}
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(session.Version, 10)},
		}
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrVersionConflict
		}
		return fmt.Errorf("conversation: failed to persist session: %w", err)
	}

	session.Version = next.Version
	session.UpdatedAt = now
	return nil
}

// List scans the whole table. Intended for small deployments and analytics.
func (s *DynamoStore) List(ctx context.Context) ([]*Session, error) {
	var (
		out   []*Session
		start map[string]types.AttributeValue
	)
	for {
		page, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.tableName),
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("conversation: failed to scan sessions: %w", err)
		}
		for _, item := range page.Items {
			sess, err := decodeSessionItem(item)
			if err != nil {
				return nil, err
			}
			out = append(out, sess)
		}
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		start = page.LastEvaluatedKey
	}
	sortSessions(out)
	return out, nil
}

func decodeSessionItem(item map[string]types.AttributeValue) (*Session, error) {
	var rec sessionRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, fmt.Errorf("conversation: failed to unmarshal session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal([]byte(rec.Data), &sess); err != nil {
		return nil, fmt.Errorf("conversation: failed to decode session: %w", err)
	}
	sess.Version = rec.Version
	return &sess, nil
}
