package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"CAMERA_ID", "CAMERA_URL", "CAMERA_USER", "CAMERA_PASS",
		"AWS_REGION", "DYNAMODB_TABLE", "S3_BUCKET", "SNS_TOPIC_ARN",
		"REKOGNITION_COLLECTION", "FACE_MATCH_THRESHOLD", "BACKEND_URL",
		"WS_ENDPOINT", "SPOOL_PATH", "INFERENCE_INTERVAL", "MIN_CONFIDENCE",
		"MIN_PERSON_FRAMES", "EVENT_COOLDOWN", "ALERT_COOLDOWN",
		"RECORD_ONLY_IF_PERSON", "POLL_INTERVAL", "TARGET_WIDTH",
		"ENCODE_QUALITY", "STREAM_WIDTH", "STREAM_QUALITY", "THUMB_WIDTH",
		"THUMB_QUALITY", "FALLBACK_DEVICE", "CAPTURE_FPS",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	cfg := FromEnv()

	assert.Equal(t, "cam01", cfg.CameraID)
	assert.Empty(t, cfg.CameraURL)
	assert.Equal(t, "us-east-1", cfg.AWSRegion)
	assert.Equal(t, "vision360-events", cfg.Table)
	assert.Equal(t, "vision360-media", cfg.Bucket)
	assert.Equal(t, "vision360-faces", cfg.Collection)
	assert.Equal(t, float32(80), cfg.FaceThreshold)
	assert.Equal(t, "http://localhost:8000", cfg.BackendURL)
	assert.Equal(t, "ws://localhost:8000", cfg.LiveEndpoint)
	assert.Equal(t, "vision360-spool.db", cfg.SpoolPath)

	assert.Equal(t, time.Second, cfg.InferInterval)
	assert.Equal(t, float32(70), cfg.MinConfidence)
	assert.Equal(t, 2, cfg.MinPersonFrames)
	assert.Equal(t, 12*time.Second, cfg.EventCooldown)
	assert.Equal(t, 180*time.Second, cfg.AlertCooldown)
	assert.True(t, cfg.RecordOnlyIfPerson)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)

	assert.Equal(t, 640, cfg.TargetWidth)
	assert.Equal(t, 70, cfg.EncodeQuality)
	assert.Equal(t, 640, cfg.StreamWidth)
	assert.Equal(t, 60, cfg.StreamQuality)
	assert.Equal(t, 480, cfg.ThumbWidth)
	assert.Equal(t, 60, cfg.ThumbQuality)

	assert.Equal(t, "/dev/video0", cfg.FallbackDevice)
	assert.Equal(t, 15, cfg.CaptureFPS)
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CAMERA_ID", "patio")
	t.Setenv("CAMERA_URL", "rtsp://192.168.1.10:554/stream")
	t.Setenv("CAMERA_USER", "admin")
	t.Setenv("CAMERA_PASS", "secret")
	t.Setenv("INFERENCE_INTERVAL", "2.5")
	t.Setenv("EVENT_COOLDOWN", "30")
	t.Setenv("RECORD_ONLY_IF_PERSON", "false")
	t.Setenv("MIN_PERSON_FRAMES", "3")
	t.Setenv("FACE_MATCH_THRESHOLD", "92.5")
	t.Setenv("SNS_TOPIC_ARN", "arn:aws:sns:us-east-1:1:alerts")

	cfg := FromEnv()

	assert.Equal(t, "patio", cfg.CameraID)
	assert.Equal(t, "rtsp://192.168.1.10:554/stream", cfg.CameraURL)
	assert.Equal(t, "admin", cfg.CameraUser)
	assert.Equal(t, "secret", cfg.CameraPass)
	assert.Equal(t, 2500*time.Millisecond, cfg.InferInterval)
	assert.Equal(t, 30*time.Second, cfg.EventCooldown)
	assert.False(t, cfg.RecordOnlyIfPerson)
	assert.Equal(t, 3, cfg.MinPersonFrames)
	assert.Equal(t, float32(92.5), cfg.FaceThreshold)
	assert.Equal(t, "arn:aws:sns:us-east-1:1:alerts", cfg.TopicARN)
}

func TestFromEnvBadValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("MIN_PERSON_FRAMES", "two")
	t.Setenv("INFERENCE_INTERVAL", "fast")
	t.Setenv("RECORD_ONLY_IF_PERSON", "yep")

	cfg := FromEnv()

	assert.Equal(t, 2, cfg.MinPersonFrames)
	assert.Equal(t, time.Second, cfg.InferInterval)
	assert.True(t, cfg.RecordOnlyIfPerson)
}
