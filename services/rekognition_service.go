package services

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rektypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	appconfig "file-manager/config"
)

const (
	rekognitionMaxLabels     = 10
	rekognitionMinConfidence = 75
	tagKeyMaxLen             = 128
	tagValueMaxLen           = 256
)

// LabelAnnotator is the best-effort side of upload: given a stored object it
// computes descriptive labels out of band. Submissions never fail the caller.
type LabelAnnotator interface {
	Submit(objectKey, contentType string)
}

// RekognitionAPI is the slice of the Rekognition client this service uses.
type RekognitionAPI interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

// RekognitionService annotates stored images with detected labels, written
// back as object tags. Every failure is logged and swallowed.
type RekognitionService struct {
	client RekognitionAPI
	store  ObjectStore
	logs   *LogStreamService
	bucket string
}

// Label detection only works on formats Rekognition accepts.
var annotatableTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

func NewRekognitionService(cfg *appconfig.Config, store ObjectStore, logs *LogStreamService) (*RekognitionService, error) {
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
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	return &RekognitionService{
		client: rekognition.NewFromConfig(awsCfg),
		store:  store,
		logs:   logs,
		bucket: cfg.S3Bucket,
	}, nil
}

// Submit schedules annotation of the object and returns immediately. The
// upload response must never wait on label detection.
func (r *RekognitionService) Submit(objectKey, contentType string) {
	if !annotatableTypes[contentType] {
		r.logs.Log(StreamRekognition, "Skipping Rekognition for %s due to unsupported content type: %s", objectKey, contentType)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		r.annotate(ctx, objectKey)
	}()
}

func (r *RekognitionService) annotate(ctx context.Context, objectKey string) {
	r.logs.Log(StreamRekognition, "Attempting Rekognition for %s", objectKey)

	result, err := r.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image: &rektypes.Image{
			S3Object: &rektypes.S3Object{
				Bucket: aws.String(r.bucket),
				Name:   aws.String(objectKey),
			},
		},
		MaxLabels:     aws.Int32(rekognitionMaxLabels),
		MinConfidence: aws.Float32(rekognitionMinConfidence),
	})
	if err != nil {
		r.logs.Log(StreamRekognitionError, "AWS Rekognition error for %s: %v", objectKey, err)
		return
	}

	if len(result.Labels) == 0 {
		r.logs.Log(StreamRekognition, "Rekognition found no labels for %s above MinConfidence", objectKey)
		return
	}

	tags := labelsToTags(result.Labels)
	if err := r.store.PutObjectTags(ctx, objectKey, tags); err != nil {
		r.logs.Log(StreamRekognitionError, "Error putting Rekognition tags for %s: %v", objectKey, err)
		return
	}

	r.logs.Log(StreamRekognition, "Applied %d Rekognition tags to %s", len(tags), objectKey)
}

var tagKeyInvalidChars = regexp.MustCompile(`[^a-zA-Z0-9_.:/=+\-@]`)

// labelsToTags converts detected labels into object tags: the key is the
// sanitized label name under a rekognition- prefix, the value the rounded
// confidence score.
func labelsToTags(labels []rektypes.Label) []ObjectTag {
	tags := make([]ObjectTag, 0, len(labels))
	for _, label := range labels {
		name := tagKeyInvalidChars.ReplaceAllString(aws.ToString(label.Name), "_")
		key := truncate("rekognition-"+name, tagKeyMaxLen)

		value := truncate(fmt.Sprintf("%.2f", aws.ToFloat32(label.Confidence)), tagValueMaxLen)

		tags = append(tags, ObjectTag{Key: key, Value: value})
	}
	return tags
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
