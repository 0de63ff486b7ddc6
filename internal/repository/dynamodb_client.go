package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"vehicle-bot/internal/domain"
)

const (
	skPrefixTurn    = "TURN#"
	skState         = "STATE#"
	turnTTL         = 30 * 24 * time.Hour // 30-day TTL
	defaultStateTTL = 15 * time.Minute
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Client stores lookup turns and pending conversation state in one DynamoDB
// table keyed by participant.
type Client struct {
	api       dynamodbAPI
	tableName string
	stateTTL  time.Duration
	now       func() time.Time
}

type Option func(*Client)

// WithStateTTL sets how long a pending prompt survives without an answer.
func WithStateTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.stateTTL = ttl
		}
	}
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	c := &Client{api: api, tableName: tableName, stateTTL: defaultStateTTL, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// participantPK returns the partition key for a participant.
func participantPK(key string) string {
	return "PART#" + key
}

// turnSK orders turns chronologically; the id disambiguates equal timestamps.
func turnSK(ts time.Time, id string) string {
	return skPrefixTurn + ts.UTC().Format(time.RFC3339Nano) + "#" + id
}

// RecordTurn appends a completed lookup turn.
func (c *Client) RecordTurn(ctx context.Context, turn domain.Turn) error {
	if strings.TrimSpace(turn.ParticipantKey) == "" {
		return errors.New("repository: RecordTurn: participant key is required")
	}
	if turn.ID == "" {
		return errors.New("repository: RecordTurn: turn id is required")
	}
	item, err := turnItem(turn, c.now().Add(turnTTL).Unix())
	if err != nil {
		return fmt.Errorf("repository: RecordTurn: %w", err)
	}

	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: RecordTurn: %w", err)
	}
	return nil
}

// Get returns the pending state for key. Items past their TTL are treated as
// absent because DynamoDB deletes expired items lazily.
func (c *Client) Get(ctx context.Context, key domain.ParticipantKey) (domain.ConversationState, bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            stateKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.ConversationState{}, false, fmt.Errorf("repository: Get state: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.ConversationState{}, false, nil
	}

	expires, err := intAttr(out.Item, "ttl")
	if err != nil {
		return domain.ConversationState{}, false, fmt.Errorf("repository: Get state decode ttl: %w", err)
	}
	if int64(expires) <= c.now().Unix() {
		return domain.ConversationState{}, false, nil
	}
	awaiting, err := boolAttr(out.Item, "awaitingIdentifier")
	if err != nil {
		return domain.ConversationState{}, false, fmt.Errorf("repository: Get state: %w", err)
	}
	return domain.ConversationState{AwaitingIdentifier: awaiting}, true, nil
}

// Set writes st for key; the idle state deletes the item.
func (c *Client) Set(ctx context.Context, key domain.ParticipantKey, st domain.ConversationState) error {
	if st.Idle() {
		return c.Clear(ctx, key)
	}
	item := stateKey(key)
	item["participantKey"] = &types.AttributeValueMemberS{Value: key.String()}
	item["awaitingIdentifier"] = &types.AttributeValueMemberBOOL{Value: true}
	item["updatedAt"] = &types.AttributeValueMemberS{Value: c.now().UTC().Format(time.RFC3339)}
	item["ttl"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(c.now().Add(c.stateTTL).Unix(), 10)}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: Set state: %w", err)
	}
	return nil
}

// Clear removes any pending state for key.
func (c *Client) Clear(ctx context.Context, key domain.ParticipantKey) error {
	_, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key:       stateKey(key),
	})
	if err != nil {
		return fmt.Errorf("repository: Clear state: %w", err)
	}
	return nil
}

// Claim consumes a pending prompt with a conditional delete, so only one
// handler (in any process) can answer it. It reports false when no live
// pending row exists.
func (c *Client) Claim(ctx context.Context, key domain.ParticipantKey) (bool, error) {
	_, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(c.tableName),
		Key:                 stateKey(key),
		ConditionExpression: aws.String("attribute_exists(PK) AND awaitingIdentifier = :true AND #ttl > :now"),
		ExpressionAttributeNames: map[string]string{
			"#ttl": "ttl",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
			":now":  &types.AttributeValueMemberN{Value: strconv.FormatInt(c.now().Unix(), 10)},
		},
	})
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("repository: Claim state: %w", err)
	}
	return true, nil
}

func stateKey(key domain.ParticipantKey) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: participantPK(key.String())},
		"SK": &types.AttributeValueMemberS{Value: skState},
	}
}

func turnItem(turn domain.Turn, ttl int64) (map[string]types.AttributeValue, error) {
	item := map[string]types.AttributeValue{
		"PK":             &types.AttributeValueMemberS{Value: participantPK(turn.ParticipantKey)},
		"SK":             &types.AttributeValueMemberS{Value: turnSK(turn.Timestamp, turn.ID)},
		"turnId":         &types.AttributeValueMemberS{Value: turn.ID},
		"participantKey": &types.AttributeValueMemberS{Value: turn.ParticipantKey},
		"input":          &types.AttributeValueMemberS{Value: turn.Input},
		"createdAt":      &types.AttributeValueMemberS{Value: turn.Timestamp.UTC().Format(time.RFC3339Nano)},
		"ttl":            &types.AttributeValueMemberN{Value: strconv.FormatInt(ttl, 10)},
	}
	if turn.Error != "" {
		item["status"] = &types.AttributeValueMemberS{Value: "error"}
		item["error"] = &types.AttributeValueMemberS{Value: turn.Error}
		return item, nil
	}
	result, err := json.Marshal(turn.Result)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	item["status"] = &types.AttributeValueMemberS{Value: "complete"}
	item["result"] = &types.AttributeValueMemberS{Value: string(result)}
	return item, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}

func boolAttr(item map[string]types.AttributeValue, key string) (bool, error) {
	v, ok := item[key]
	if !ok {
		return false, fmt.Errorf("repository: missing attribute %q", key)
	}
	b, ok := v.(*types.AttributeValueMemberBOOL)
	if !ok {
		return false, fmt.Errorf("repository: attribute %q is not a boolean", key)
	}
	return b.Value, nil
}
