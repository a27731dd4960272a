package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/frnnnnn/Vision360/internal/agent"
	"github.com/frnnnnn/Vision360/internal/alert"
	"github.com/frnnnnn/Vision360/internal/config"
	"github.com/frnnnnn/Vision360/internal/detection"
	"github.com/frnnnnn/Vision360/internal/events"
	"github.com/frnnnnn/Vision360/internal/pipeline"
	"github.com/frnnnnn/Vision360/internal/source"
	"github.com/frnnnnn/Vision360/internal/stream"
)

func main() {
	// Define command line flags. Everything else comes from the environment
	// (and a .env file when present).
	var (
		cameraF = flag.String("camera", "", "Camera ID (overrides CAMERA_ID)")
		urlF    = flag.String("url", "", "Camera URL (overrides CAMERA_URL)")
		deviceF = flag.String("device", "", "Capture device used without a reachable URL (overrides FALLBACK_DEVICE)")
	)
	flag.Parse()

	// Setup logger.
	var (
		logger *log.Logger
	)
	{
		logger = log.New(os.Stderr, "[vision360] ", log.Ltime)
	}

	env := config.FromEnv()
	if *cameraF != "" {
		env.CameraID = *cameraF
	}
	if *urlF != "" {
		env.CameraURL = *urlF
	}
	if *deviceF != "" {
		env.FallbackDevice = *deviceF
	}

	// Initialize the AWS clients. Tight timeouts keep a dead network from
	// stalling detection cycles.
	var (
		rekognitionClient *rekognition.Client
		dynamoClient      *dynamodb.Client
		s3Client          *s3.Client
		snsClient         *sns.Client
		presigner         *s3.PresignClient
	)
	{
		httpClient := &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: 3 * time.Second}).DialContext,
				ResponseHeaderTimeout: 5 * time.Second,
			},
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(env.AWSRegion),
			awsconfig.WithRetryMaxAttempts(2),
			awsconfig.WithHTTPClient(httpClient),
		)
		if err != nil {
			logger.Fatalf("aws config: %s", err)
		}
		rekognitionClient = rekognition.NewFromConfig(awsCfg)
		dynamoClient = dynamodb.NewFromConfig(awsCfg)
		s3Client = s3.NewFromConfig(awsCfg)
		snsClient = sns.NewFromConfig(awsCfg)
		presigner = s3.NewPresignClient(s3Client)
	}

	// Initialize event storage with the backend/spool rescue path.
	var (
		store *events.EventStore
		sink  *events.FallbackSink
	)
	{
		store = events.NewEventStore(dynamoClient, s3Client, presigner, events.StoreConfig{
			Table:  env.Table,
			Bucket: env.Bucket,
		})
		var spool *events.Spool
		if env.SpoolPath != "" {
			var err error
			spool, err = events.OpenSpool(env.SpoolPath)
			if err != nil {
				logger.Printf("spool unavailable, continuing without: %s", err)
			}
		}
		sink = events.NewFallbackSink(store, spool, events.FallbackConfig{
			BackendURL: env.BackendURL,
		})
		sink.StartReplay()
	}

	// Initialize the detection services.
	var (
		detector *detection.LabelDetector
		matcher  *detection.FaceMatcher
	)
	{
		registry := events.NewFaceRegistry(dynamoClient, env.Table)
		detector = detection.NewLabelDetector(rekognitionClient, detection.LabelDetectorConfig{
			MinConfidence: env.MinConfidence,
		})
		matcher = detection.NewFaceMatcher(rekognitionClient, registry, detection.FaceMatcherConfig{
			Collection: env.Collection,
			Threshold:  env.FaceThreshold,
		})
	}

	// Initialize alerting. Without a topic the agent records events but
	// never notifies.
	var (
		notifier *alert.Notifier
		alerts   pipeline.AlertNotifier
	)
	{
		if env.TopicARN != "" {
			notifier = alert.NewNotifier(alert.NewSNSPublisher(snsClient, env.TopicARN), store, "", "")
			alerts = notifier
		} else {
			logger.Printf("SNS_TOPIC_ARN not set, alerts disabled")
		}
	}

	// Initialize the detection pipeline.
	settings := pipeline.DefaultSettings()
	settings.InferInterval = env.InferInterval
	settings.MinPersonFrames = env.MinPersonFrames
	settings.EventCooldown = env.EventCooldown
	settings.AlertCooldown = env.AlertCooldown
	settings.RecordWithoutPerson = !env.RecordOnlyIfPerson
	settings.TargetWidth = env.TargetWidth
	settings.EncodeQuality = env.EncodeQuality
	settings.ThumbWidth = env.ThumbWidth
	settings.ThumbQuality = env.ThumbQuality
	pl := pipeline.NewPipeline(env.CameraID, settings, detector, matcher, sink, alerts)

	// Initialize the camera source.
	src := source.NewSource(source.Config{
		ID:             env.CameraID,
		URL:            env.CameraURL,
		Username:       env.CameraUser,
		Password:       env.CameraPass,
		FallbackDevice: env.FallbackDevice,
		FPS:            env.CaptureFPS,
	})

	// Initialize the live view publisher.
	var (
		livePub *stream.Publisher
		live    agent.FramePublisher
	)
	{
		if env.LiveEndpoint != "" {
			livePub = stream.NewPublisher(stream.PublisherConfig{
				Endpoint: env.LiveEndpoint,
				SourceID: env.CameraID,
				Width:    env.StreamWidth,
				Quality:  env.StreamQuality,
			})
			live = livePub
		}
	}

	// Remote camera config, falling back to the environment values.
	provider := config.NewProvider(dynamoClient, env.Table, config.CameraConfig{
		URL:      env.CameraURL,
		Username: env.CameraUser,
		Password: env.CameraPass,
	})

	var labeler agent.CameraLabeler
	if notifier != nil {
		labeler = notifier
	}
	ag := agent.New(env.CameraID, src, pl, live, provider, labeler, env.PollInterval)

	// Create channel used by both the signal handler and the worker
	// goroutines to notify the main goroutine when to stop.
	errc := make(chan error)

	// Setup interrupt handler. This optional step configures the process so
	// that SIGINT and SIGTERM signals cause a graceful stop.
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	ctx, cancel := context.WithCancel(context.Background())

	if err := src.Start(); err != nil {
		logger.Fatalf("start source: %s", err)
	}
	if err := ag.Start(ctx); err != nil {
		logger.Fatalf("start agent: %s", err)
	}
	logger.Printf("watching camera %s (instance %s)", env.CameraID, ag.InstanceID())

	// Wait for signal.
	logger.Printf("exiting (%v)", <-errc)

	// Send cancellation signal to the goroutines.
	cancel()

	ag.Stop()
	src.Stop()
	if livePub != nil {
		livePub.Close()
	}
	sink.Stop()
	logger.Println("exited")
}
