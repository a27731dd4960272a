package events

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/frnnnnn/Vision360/internal/detection"
)

// DynamoGetAPI is the slice of the DynamoDB client used for point reads.
type DynamoGetAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// Face records share the events table under a FACE# key prefix.
const facePrefix = "FACE#"

// FaceRegistry resolves indexed face IDs to person names.
type FaceRegistry struct {
	db    DynamoGetAPI
	table string
}

// NewFaceRegistry creates a registry over the events table.
func NewFaceRegistry(db DynamoGetAPI, table string) *FaceRegistry {
	if table == "" {
		table = defaultTable
	}
	return &FaceRegistry{db: db, table: table}
}

var _ detection.IdentityLookup = (*FaceRegistry)(nil)

// IdentityName returns the name registered for a face ID, or "Unknown" when
// the face was indexed without one.
func (r *FaceRegistry) IdentityName(ctx context.Context, faceID string) (string, error) {
	out, err := r.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"event_id": &types.AttributeValueMemberS{Value: facePrefix + faceID},
		},
	})
	if err != nil {
		return "", fmt.Errorf("get face record: %w", err)
	}

	if name, ok := out.Item["name"].(*types.AttributeValueMemberS); ok && name.Value != "" {
		return name.Value, nil
	}
	return "Unknown", nil
}
