package events

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/frnnnnn/Vision360/internal/pipeline"
)

// DynamoPutAPI is the slice of the DynamoDB client used to write events.
type DynamoPutAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// ObjectPutAPI is the slice of the S3 client used to upload media.
type ObjectPutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// PresignAPI is the slice of the S3 presign client used to share media links.
type PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

const (
	defaultTable      = "vision360-events"
	defaultBucket     = "vision360-media"
	defaultPresignTTL = 24 * time.Hour
)

// EventStore persists confirmed events to DynamoDB and their thumbnails to
// S3. It is the primary store; callers wanting durability through outages
// wrap it in a FallbackSink.
type EventStore struct {
	db         DynamoPutAPI
	media      ObjectPutAPI
	presigner  PresignAPI
	table      string
	bucket     string
	presignTTL time.Duration
}

// StoreConfig holds the table and bucket bindings.
type StoreConfig struct {
	Table      string
	Bucket     string
	PresignTTL time.Duration
}

// NewEventStore creates a store with defaults filled in.
func NewEventStore(db DynamoPutAPI, media ObjectPutAPI, presigner PresignAPI, config StoreConfig) *EventStore {
	if config.Table == "" {
		config.Table = defaultTable
	}
	if config.Bucket == "" {
		config.Bucket = defaultBucket
	}
	if config.PresignTTL <= 0 {
		config.PresignTTL = defaultPresignTTL
	}
	return &EventStore{
		db:         db,
		media:      media,
		presigner:  presigner,
		table:      config.Table,
		bucket:     config.Bucket,
		presignTTL: config.PresignTTL,
	}
}

var _ pipeline.EventSink = (*EventStore)(nil)

// Persist writes one event item.
func (s *EventStore) Persist(ctx context.Context, ev *pipeline.Event) error {
	item, err := attributevalue.MarshalMap(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put event: %w", err)
	}
	return nil
}

// UploadMedia stores one JPEG under the given key and returns the key as the
// reference to record on the event.
func (s *EventStore) UploadMedia(ctx context.Context, data []byte, key string) (string, error) {
	_, err := s.media.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	return key, nil
}

// MediaURL returns a time-limited download link for a stored media key, or
// an empty string for an event that has no media.
func (s *EventStore) MediaURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignTTL))
	if err != nil {
		return "", fmt.Errorf("presign media: %w", err)
	}
	return req.URL, nil
}
