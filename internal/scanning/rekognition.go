package scanning

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/zombor/grocery-tracker/internal/grocery"
)

const rekognitionTimeout = 30 * time.Second

// LabelDetector is the subset of the Rekognition client used for detection
type LabelDetector interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

// Rekognition implements the Provider interface using AWS Rekognition labels.
// Labels are mapped to categories with the keyword classifier.
type Rekognition struct {
	client        LabelDetector
	maxLabels     int32
	minConfidence float32
}

// NewRekognition creates a Rekognition Provider using the default AWS credential chain
func NewRekognition(ctx context.Context, region string) (*Rekognition, error) {
	if region == "" {
		return nil, fmt.Errorf("aws region is required")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return NewRekognitionWithClient(rekognition.NewFromConfig(cfg)), nil
}

// NewRekognitionWithClient creates a Rekognition Provider with a custom client for testing
func NewRekognitionWithClient(client LabelDetector) *Rekognition {
	return &Rekognition{
		client:        client,
		maxLabels:     25,
		minConfidence: 70,
	}
}

// Name returns the provider name
func (r *Rekognition) Name() string {
	return "rekognition"
}

// DetectItems detects labels in the photo and keeps the ones that look like groceries
func (r *Rekognition) DetectItems(ctx context.Context, photo *Photo) (*Detection, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rekognitionTimeout)
		defer cancel()
	}

	out, err := r.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: photo.Data},
		MaxLabels:     aws.Int32(r.maxLabels),
		MinConfidence: aws.Float32(r.minConfidence),
	})
	if err != nil {
		return nil, fmt.Errorf("detecting labels: %w", err)
	}

	// A label that is the parent of another label ("Fruit" for "Apple") is too generic
	parents := make(map[string]bool)
	for _, label := range out.Labels {
		for _, parent := range label.Parents {
			parents[aws.ToString(parent.Name)] = true
		}
	}

	detection := &Detection{}
	for i, label := range out.Labels {
		name := aws.ToString(label.Name)
		if name == "" {
			detection.Rejected = append(detection.Rejected, Rejection{Index: i, Reason: "missing name"})
			continue
		}
		if parents[name] {
			continue
		}

		category := labelCategory(label)
		if category == grocery.CategoryOther {
			detection.Rejected = append(detection.Rejected, Rejection{Index: i, Reason: "not a grocery item"})
			continue
		}

		confidence := float64(aws.ToFloat32(label.Confidence)) / 100
		entry := ItemRecord{
			Name:       name,
			Category:   string(category),
			Confidence: &confidence,
		}
		if len(label.Instances) > 0 {
			count := float64(len(label.Instances))
			entry.Quantity = &count
		}
		detection.Records = append(detection.Records, entry)
	}

	return detection, nil
}

// labelCategory classifies a label by its own name, then by its parents
func labelCategory(label types.Label) grocery.Category {
	if c := grocery.Categorize(aws.ToString(label.Name)); c != grocery.CategoryOther {
		return c
	}
	for _, parent := range label.Parents {
		if c := grocery.Categorize(aws.ToString(parent.Name)); c != grocery.CategoryOther {
			return c
		}
	}
	return grocery.CategoryOther
}

// Close is a no-op, the AWS client holds no resources
func (r *Rekognition) Close() error {
	return nil
}
