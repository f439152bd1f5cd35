package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	appconfig "file-manager/config"
)

// Log stream names, one per concern. Consistency violations go to the
// critical stream so operators can reconcile them.
const (
	StreamApplication      = "application-logs"
	StreamCritical         = "critical-alerts"
	StreamRekognition      = "rekognition-logs"
	StreamRekognitionError = "rekognition-errors"
)

// LogStreamService writes application events to named CloudWatch Logs
// streams. When CloudWatch is disabled or unconfigured it falls back to the
// process log, so no message is ever dropped silently.
type LogStreamService struct {
	client *cloudwatchlogs.Client
	group  string

	mu      sync.Mutex
	streams map[string]bool // streams known to exist
}

func NewLogStreamService(cfg *appconfig.Config) *LogStreamService {
	svc := &LogStreamService{
		group:   cfg.LogGroupName,
		streams: make(map[string]bool),
	}

	if !cfg.LogEnabled || cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
		log.Printf("CloudWatch logging disabled, falling back to process log")
		return svc
	}

	awsCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.S3Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.S3AccessKey,
				cfg.S3SecretKey,
				"",
			),
		),
	)
	if err != nil {
		log.Printf("Failed to initialize CloudWatch Logs client, falling back to process log: %v", err)
		return svc
	}

	svc.client = cloudwatchlogs.NewFromConfig(awsCfg)
	return svc
}

// Log writes a formatted message to the given stream.
func (l *LogStreamService) Log(stream, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)

	if l.client == nil {
		log.Printf("[%s] %s", stream, message)
		return
	}

	if err := l.put(stream, message); err != nil {
		// Never lose the message because the log pipeline is down.
		log.Printf("[%s] %s (CloudWatch put failed: %v)", stream, message, err)
	}
}

// Critical records a consistency violation or other condition requiring
// manual reconciliation. Always mirrored to the process log.
func (l *LogStreamService) Critical(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	log.Printf("CRITICAL: %s", message)

	if l.client == nil {
		return
	}
	if err := l.put(StreamCritical, "CRITICAL: "+message); err != nil {
		log.Printf("CRITICAL log delivery to CloudWatch failed: %v", err)
	}
}

func (l *LogStreamService) put(stream, message string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := l.ensureStream(ctx, stream); err != nil {
		return err
	}

	_, err := l.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(l.group),
		LogStreamName: aws.String(stream),
		LogEvents: []cwtypes.InputLogEvent{
			{
				Timestamp: aws.Int64(time.Now().UnixMilli()),
				Message:   aws.String(message),
			},
		},
	})
	return err
}

func (l *LogStreamService) ensureStream(ctx context.Context, stream string) error {
	l.mu.Lock()
	known := l.streams[stream]
	l.mu.Unlock()
	if known {
		return nil
	}

	_, err := l.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(l.group),
		LogStreamName: aws.String(stream),
	})
	if err != nil {
		var exists *cwtypes.ResourceAlreadyExistsException
		if !errors.As(err, &exists) {
			return err
		}
	}

	l.mu.Lock()
	l.streams[stream] = true
	l.mu.Unlock()
	return nil
}
