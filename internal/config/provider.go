package config

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoConfigAPI is the slice of the DynamoDB client used for remote config.
type DynamoConfigAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Camera config records share the events table under a CONFIG# key prefix.
const configPrefix = "CONFIG#"

// CameraConfig is the remotely managed camera record. The backend edits it;
// the agent polls it and applies changes without restarting.
type CameraConfig struct {
	Name     string
	Location string
	URL      string
	Username string
	Password string
	Active   bool
}

type cameraRecord struct {
	Name     string `dynamodbav:"name"`
	Location string `dynamodbav:"location"`
	URL      string `dynamodbav:"url"`
	Username string `dynamodbav:"username"`
	Password string `dynamodbav:"password"`
	IsActive *bool  `dynamodbav:"is_active"`
}

// Provider reads camera config from the events table and reports liveness
// back to it.
type Provider struct {
	db       DynamoConfigAPI
	table    string
	fallback CameraConfig
}

// NewProvider creates a provider. The fallback config (usually env-derived)
// is returned whenever the table cannot be read.
func NewProvider(db DynamoConfigAPI, table string, fallback CameraConfig) *Provider {
	if table == "" {
		table = "vision360-events"
	}
	fallback.Active = true
	return &Provider{db: db, table: table, fallback: fallback}
}

// Get returns the current camera config. Read failures and missing records
// fall back to the env-derived config so the agent keeps running through
// backend outages.
func (p *Provider) Get(ctx context.Context, sourceID string) CameraConfig {
	out, err := p.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(p.table),
		Key: map[string]types.AttributeValue{
			"event_id": &types.AttributeValueMemberS{Value: configPrefix + sourceID},
		},
	})
	if err != nil {
		log.Printf("[Config] %s: remote config read failed: %v", sourceID, err)
		return p.fallback
	}
	if out.Item == nil {
		return p.fallback
	}

	var rec cameraRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		log.Printf("[Config] %s: bad remote config record: %v", sourceID, err)
		return p.fallback
	}

	cfg := CameraConfig{
		Name:     rec.Name,
		Location: rec.Location,
		URL:      rec.URL,
		Username: rec.Username,
		Password: rec.Password,
		Active:   true, // a record without the flag counts as active
	}
	if rec.IsActive != nil {
		cfg.Active = *rec.IsActive
	}
	if cfg.URL == "" {
		cfg.URL = p.fallback.URL
		cfg.Username = p.fallback.Username
		cfg.Password = p.fallback.Password
	}
	return cfg
}

// Heartbeat stamps the camera's config record so the backend can tell a live
// agent from a dead one.
func (p *Provider) Heartbeat(ctx context.Context, sourceID string, now time.Time) error {
	_, err := p.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(p.table),
		Key: map[string]types.AttributeValue{
			"event_id": &types.AttributeValueMemberS{Value: configPrefix + sourceID},
		},
		UpdateExpression: aws.String("SET last_heartbeat = :t, #st = :s, camera_id = :c"),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
			":s": &types.AttributeValueMemberS{Value: "ONLINE"},
			":c": &types.AttributeValueMemberS{Value: sourceID},
		},
	})
	if err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	return nil
}
