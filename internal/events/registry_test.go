package events

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGetItem struct {
	fn func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error)
}

func (f *fakeGetItem) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return f.fn(params)
}

func TestIdentityNameFound(t *testing.T) {
	var gotInput *dynamodb.GetItemInput
	db := &fakeGetItem{fn: func(in *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
		gotInput = in
		return &dynamodb.GetItemOutput{Item: map[string]ddbtypes.AttributeValue{
			"event_id": &ddbtypes.AttributeValueMemberS{Value: "FACE#face-1"},
			"name":     &ddbtypes.AttributeValueMemberS{Value: "Alice"},
		}}, nil
	}}

	r := NewFaceRegistry(db, "")
	name, err := r.IdentityName(context.Background(), "face-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)

	require.NotNil(t, gotInput)
	assert.Equal(t, defaultTable, aws.ToString(gotInput.TableName))
	key, ok := gotInput.Key["event_id"].(*ddbtypes.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "FACE#face-1", key.Value)
}

func TestIdentityNameMissingRecord(t *testing.T) {
	db := &fakeGetItem{fn: func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
		return &dynamodb.GetItemOutput{}, nil
	}}

	r := NewFaceRegistry(db, "")
	name, err := r.IdentityName(context.Background(), "face-2")
	require.NoError(t, err)
	assert.Equal(t, "Unknown", name)
}

func TestIdentityNameMissingAttribute(t *testing.T) {
	db := &fakeGetItem{fn: func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
		return &dynamodb.GetItemOutput{Item: map[string]ddbtypes.AttributeValue{
			"event_id": &ddbtypes.AttributeValueMemberS{Value: "FACE#face-3"},
		}}, nil
	}}

	r := NewFaceRegistry(db, "")
	name, err := r.IdentityName(context.Background(), "face-3")
	require.NoError(t, err)
	assert.Equal(t, "Unknown", name)
}

func TestIdentityNameError(t *testing.T) {
	db := &fakeGetItem{fn: func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
		return nil, errors.New("table offline")
	}}

	r := NewFaceRegistry(db, "custom-table")
	name, err := r.IdentityName(context.Background(), "face-4")
	assert.Empty(t, name)
	assert.ErrorContains(t, err, "get face record")
}
