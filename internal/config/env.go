package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Env is the process configuration, resolved from environment variables with
// defaults suitable for a single-camera deployment.
type Env struct {
	CameraID   string
	CameraURL  string // empty means local device only
	CameraUser string
	CameraPass string

	AWSRegion     string
	Table         string
	Bucket        string
	TopicARN      string // empty disables alerts
	Collection    string
	FaceThreshold float32
	BackendURL    string
	LiveEndpoint  string // empty disables the live view
	SpoolPath     string // empty disables the local spool

	InferInterval      time.Duration
	MinConfidence      float32
	MinPersonFrames    int
	EventCooldown      time.Duration
	AlertCooldown      time.Duration
	RecordOnlyIfPerson bool
	PollInterval       time.Duration

	TargetWidth   int
	EncodeQuality int
	StreamWidth   int
	StreamQuality int
	ThumbWidth    int
	ThumbQuality  int

	FallbackDevice string
	CaptureFPS     int
}

// FromEnv loads a .env file when present and resolves the configuration.
func FromEnv() Env {
	godotenv.Load()

	return Env{
		CameraID:   getenv("CAMERA_ID", "cam01"),
		CameraURL:  getenv("CAMERA_URL", ""),
		CameraUser: getenv("CAMERA_USER", ""),
		CameraPass: getenv("CAMERA_PASS", ""),

		AWSRegion:     getenv("AWS_REGION", "us-east-1"),
		Table:         getenv("DYNAMODB_TABLE", "vision360-events"),
		Bucket:        getenv("S3_BUCKET", "vision360-media"),
		TopicARN:      getenv("SNS_TOPIC_ARN", ""),
		Collection:    getenv("REKOGNITION_COLLECTION", "vision360-faces"),
		FaceThreshold: float32(getFloat("FACE_MATCH_THRESHOLD", 80)),
		BackendURL:    getenv("BACKEND_URL", "http://localhost:8000"),
		LiveEndpoint:  getenv("WS_ENDPOINT", "ws://localhost:8000"),
		SpoolPath:     getenv("SPOOL_PATH", "vision360-spool.db"),

		InferInterval:      getSeconds("INFERENCE_INTERVAL", 1.0),
		MinConfidence:      float32(getFloat("MIN_CONFIDENCE", 70)),
		MinPersonFrames:    getInt("MIN_PERSON_FRAMES", 2),
		EventCooldown:      getSeconds("EVENT_COOLDOWN", 12),
		AlertCooldown:      getSeconds("ALERT_COOLDOWN", 180),
		RecordOnlyIfPerson: getBool("RECORD_ONLY_IF_PERSON", true),
		PollInterval:       getSeconds("POLL_INTERVAL", 5),

		TargetWidth:   getInt("TARGET_WIDTH", 640),
		EncodeQuality: getInt("ENCODE_QUALITY", 70),
		StreamWidth:   getInt("STREAM_WIDTH", 640),
		StreamQuality: getInt("STREAM_QUALITY", 60),
		ThumbWidth:    getInt("THUMB_WIDTH", 480),
		ThumbQuality:  getInt("THUMB_QUALITY", 60),

		FallbackDevice: getenv("FALLBACK_DEVICE", "/dev/video0"),
		CaptureFPS:     getInt("CAPTURE_FPS", 15),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[Config] %s=%q is not an integer, using %d", key, v, def)
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[Config] %s=%q is not a number, using %g", key, v, def)
		return def
	}
	return f
}

// getSeconds reads a duration given as seconds, fractional allowed.
func getSeconds(key string, def float64) time.Duration {
	return time.Duration(getFloat(key, def) * float64(time.Second))
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[Config] %s=%q is not a boolean, using %v", key, v, def)
		return def
	}
	return b
}
