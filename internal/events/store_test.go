package events

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frnnnnn/Vision360/internal/pipeline"
)

type fakePutItem struct {
	fn func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error)
}

func (f *fakePutItem) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return f.fn(params)
}

type fakePutObject struct {
	fn func(*s3.PutObjectInput) (*s3.PutObjectOutput, error)
}

func (f *fakePutObject) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return f.fn(params)
}

type fakePresigner struct {
	fn func(*s3.GetObjectInput) (*v4.PresignedHTTPRequest, error)
}

func (f *fakePresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return f.fn(params)
}

func sampleEvent(ts time.Time) *pipeline.Event {
	return &pipeline.Event{
		ID:             pipeline.EventID("cam01", ts),
		Timestamp:      ts.UnixMilli(),
		SourceID:       "cam01",
		PersonDetected: true,
		Confidence:     88.5,
		Labels:         []pipeline.EventLabel{{Name: "Person", Confidence: 88.5}},
		MediaRef:       "events/raw/2026-03-14/cam01-1.jpg",
		Type:           pipeline.EventIntrusion,
		Severity:       pipeline.SeverityHigh,
	}
}

func TestPersistMarshalsItem(t *testing.T) {
	var gotInput *dynamodb.PutItemInput
	db := &fakePutItem{fn: func(in *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
		gotInput = in
		return &dynamodb.PutItemOutput{}, nil
	}}

	store := NewEventStore(db, nil, nil, StoreConfig{})
	ev := sampleEvent(time.UnixMilli(1700000000000))
	require.NoError(t, store.Persist(context.Background(), ev))

	require.NotNil(t, gotInput)
	assert.Equal(t, defaultTable, aws.ToString(gotInput.TableName))

	id, ok := gotInput.Item["event_id"].(*ddbtypes.AttributeValueMemberS)
	require.True(t, ok, "event_id must be a string attribute")
	assert.Equal(t, ev.ID, id.Value)

	person, ok := gotInput.Item["person_detected"].(*ddbtypes.AttributeValueMemberBOOL)
	require.True(t, ok)
	assert.True(t, person.Value)

	cam, ok := gotInput.Item["camera_id"].(*ddbtypes.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "cam01", cam.Value)

	labels, ok := gotInput.Item["labels"].(*ddbtypes.AttributeValueMemberL)
	require.True(t, ok)
	require.Len(t, labels.Value, 1)
}

func TestPersistError(t *testing.T) {
	db := &fakePutItem{fn: func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
		return nil, errors.New("table offline")
	}}

	store := NewEventStore(db, nil, nil, StoreConfig{})
	err := store.Persist(context.Background(), sampleEvent(time.Now()))
	assert.ErrorContains(t, err, "put event")
}

func TestUploadMedia(t *testing.T) {
	var gotInput *s3.PutObjectInput
	media := &fakePutObject{fn: func(in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		gotInput = in
		return &s3.PutObjectOutput{}, nil
	}}

	store := NewEventStore(nil, media, nil, StoreConfig{Bucket: "cam-media"})
	data := []byte{0xFF, 0xD8, 0xFF, 0xD9}

	ref, err := store.UploadMedia(context.Background(), data, "events/raw/2026-03-14/x.jpg")
	require.NoError(t, err)
	assert.Equal(t, "events/raw/2026-03-14/x.jpg", ref)

	require.NotNil(t, gotInput)
	assert.Equal(t, "cam-media", aws.ToString(gotInput.Bucket))
	assert.Equal(t, "events/raw/2026-03-14/x.jpg", aws.ToString(gotInput.Key))
	assert.Equal(t, "image/jpeg", aws.ToString(gotInput.ContentType))

	body, err := io.ReadAll(gotInput.Body)
	require.NoError(t, err)
	assert.Equal(t, data, body)
}

func TestUploadMediaError(t *testing.T) {
	media := &fakePutObject{fn: func(*s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return nil, errors.New("bucket gone")
	}}

	store := NewEventStore(nil, media, nil, StoreConfig{})
	ref, err := store.UploadMedia(context.Background(), []byte{0x01}, "k")
	assert.Empty(t, ref)
	assert.ErrorContains(t, err, "upload media")
}

func TestMediaURL(t *testing.T) {
	var gotInput *s3.GetObjectInput
	presigner := &fakePresigner{fn: func(in *s3.GetObjectInput) (*v4.PresignedHTTPRequest, error) {
		gotInput = in
		return &v4.PresignedHTTPRequest{URL: "https://media.example/signed"}, nil
	}}

	store := NewEventStore(nil, nil, presigner, StoreConfig{Bucket: "cam-media"})
	url, err := store.MediaURL(context.Background(), "events/raw/2026-03-14/x.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://media.example/signed", url)

	require.NotNil(t, gotInput)
	assert.Equal(t, "cam-media", aws.ToString(gotInput.Bucket))
	assert.Equal(t, "events/raw/2026-03-14/x.jpg", aws.ToString(gotInput.Key))
}

func TestMediaURLEmptyKey(t *testing.T) {
	presigner := &fakePresigner{fn: func(*s3.GetObjectInput) (*v4.PresignedHTTPRequest, error) {
		t.Fatal("presigner must not be called for empty keys")
		return nil, nil
	}}

	store := NewEventStore(nil, nil, presigner, StoreConfig{})
	url, err := store.MediaURL(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, url)
}
