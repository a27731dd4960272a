package detection

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/frnnnnn/Vision360/internal/pipeline"
)

// FacesAPI is the slice of the Rekognition client used for face search.
type FacesAPI interface {
	SearchFacesByImage(ctx context.Context, params *rekognition.SearchFacesByImageInput, optFns ...func(*rekognition.Options)) (*rekognition.SearchFacesByImageOutput, error)
}

// IdentityLookup resolves an indexed face ID to a person name.
type IdentityLookup interface {
	IdentityName(ctx context.Context, faceID string) (string, error)
}

const (
	defaultCollection    = "vision360-faces"
	defaultFaceThreshold = 80.0 // minimum similarity for a match
	unknownIdentity      = "Unknown"
)

// FaceMatcher checks frames against the indexed face collection to decide
// whether a detected person is somebody we know.
type FaceMatcher struct {
	client     FacesAPI
	identities IdentityLookup
	collection string
	threshold  float32
}

// FaceMatcherConfig holds tuning for face search.
type FaceMatcherConfig struct {
	Collection string
	Threshold  float32
}

// NewFaceMatcher creates a face matcher with defaults filled in.
func NewFaceMatcher(client FacesAPI, identities IdentityLookup, config FaceMatcherConfig) *FaceMatcher {
	if config.Collection == "" {
		config.Collection = defaultCollection
	}
	if config.Threshold <= 0 {
		config.Threshold = defaultFaceThreshold
	}
	return &FaceMatcher{
		client:     client,
		identities: identities,
		collection: config.Collection,
		threshold:  config.Threshold,
	}
}

var _ pipeline.FaceMatchService = (*FaceMatcher)(nil)

// Search looks for the best face match in the frame. A frame with no
// detectable face is a normal no-match, not an error: Rekognition reports it
// as InvalidParameterException.
func (m *FaceMatcher) Search(ctx context.Context, image []byte) (*pipeline.FaceMatch, error) {
	out, err := m.client.SearchFacesByImage(ctx, &rekognition.SearchFacesByImageInput{
		CollectionId:       aws.String(m.collection),
		Image:              &types.Image{Bytes: image},
		FaceMatchThreshold: aws.Float32(m.threshold),
		MaxFaces:           aws.Int32(1),
	})
	if err != nil {
		var noFace *types.InvalidParameterException
		if errors.As(err, &noFace) {
			return &pipeline.FaceMatch{}, nil
		}
		return nil, fmt.Errorf("search faces: %w", err)
	}

	if len(out.FaceMatches) == 0 {
		return &pipeline.FaceMatch{}, nil
	}

	best := out.FaceMatches[0]
	if best.Face == nil || best.Face.FaceId == nil {
		return &pipeline.FaceMatch{}, nil
	}

	faceID := aws.ToString(best.Face.FaceId)
	match := &pipeline.FaceMatch{
		Matched:    true,
		FaceID:     faceID,
		Identity:   unknownIdentity,
		Similarity: aws.ToFloat32(best.Similarity),
	}

	if m.identities != nil {
		name, err := m.identities.IdentityName(ctx, faceID)
		if err != nil {
			log.Printf("[Faces] identity lookup for %s failed: %v", faceID, err)
		} else if name != "" {
			match.Identity = name
		}
	}

	return match, nil
}
