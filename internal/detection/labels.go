package detection

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/frnnnnn/Vision360/internal/pipeline"
)

// LabelsAPI is the slice of the Rekognition client used for label detection.
type LabelsAPI interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

const (
	defaultMaxLabels     = 15
	defaultMinConfidence = 70.0 // labels below this are not returned at all
)

// LabelDetector runs object detection on JPEG frames through Rekognition.
type LabelDetector struct {
	client        LabelsAPI
	maxLabels     int32
	minConfidence float32
}

// LabelDetectorConfig holds tuning for label detection.
type LabelDetectorConfig struct {
	MaxLabels     int32
	MinConfidence float32
}

// NewLabelDetector creates a label detector with defaults filled in.
func NewLabelDetector(client LabelsAPI, config LabelDetectorConfig) *LabelDetector {
	if config.MaxLabels <= 0 {
		config.MaxLabels = defaultMaxLabels
	}
	if config.MinConfidence <= 0 {
		config.MinConfidence = defaultMinConfidence
	}
	return &LabelDetector{
		client:        client,
		maxLabels:     config.MaxLabels,
		minConfidence: config.MinConfidence,
	}
}

var _ pipeline.DetectionService = (*LabelDetector)(nil)

// DetectLabels sends one JPEG to Rekognition and returns the labels sorted by
// confidence, highest first.
func (d *LabelDetector) DetectLabels(ctx context.Context, image []byte) (*pipeline.DetectionResult, error) {
	start := time.Now()

	out, err := d.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: image},
		MaxLabels:     aws.Int32(d.maxLabels),
		MinConfidence: aws.Float32(d.minConfidence),
	})
	if err != nil {
		return nil, fmt.Errorf("detect labels: %w", err)
	}

	labels := make([]pipeline.Label, 0, len(out.Labels))
	for _, l := range out.Labels {
		labels = append(labels, pipeline.Label{
			Name:       aws.ToString(l.Name),
			Confidence: aws.ToFloat32(l.Confidence),
			Boxes:      instanceBoxes(l.Instances),
		})
	}
	sort.SliceStable(labels, func(i, j int) bool {
		return labels[i].Confidence > labels[j].Confidence
	})

	return &pipeline.DetectionResult{
		Labels:      labels,
		InferenceMs: float32(time.Since(start).Seconds() * 1000),
	}, nil
}

// instanceBoxes converts Rekognition bounding boxes (left/top/width/height,
// all normalized 0..1) to corner form.
func instanceBoxes(instances []types.Instance) []pipeline.BBox {
	var boxes []pipeline.BBox
	for _, inst := range instances {
		bb := inst.BoundingBox
		if bb == nil {
			continue
		}
		left := aws.ToFloat32(bb.Left)
		top := aws.ToFloat32(bb.Top)
		boxes = append(boxes, pipeline.BBox{
			X1: left,
			Y1: top,
			X2: left + aws.ToFloat32(bb.Width),
			Y2: top + aws.ToFloat32(bb.Height),
		})
	}
	return boxes
}
