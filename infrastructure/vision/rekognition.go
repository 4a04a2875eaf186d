package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	_ "golang.org/x/image/webp"

	"smart-gallery/domain/models"
)

// RekognitionAPI is the subset of the Rekognition client used here.
type RekognitionAPI interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
	DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
}

type RekognitionFactory func(ctx context.Context, creds Credentials) (RekognitionAPI, error)

func newRekognitionClient(ctx context.Context, creds Credentials) (RekognitionAPI, error) {
	region := creds.AWSRegion
	if region == "" {
		region = "us-east-1"
	}
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(creds.AWSAccessKey, creds.AWSSecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return rekognition.NewFromConfig(cfg), nil
}

// analyzeRekognition issues DetectLabels and DetectFaces and rescales Rekognition's
// 0-100 confidences and ratio boxes to the shared result shape.
func (c *Client) analyzeRekognition(ctx context.Context, req Request) (*Result, error) {
	client, err := c.newRekognition(ctx, req.Credentials)
	if err != nil {
		return nil, err
	}

	img := &types.Image{Bytes: req.Image}
	result := &Result{}

	if req.Features.Tagging {
		out, err := client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
			Image:     img,
			MaxLabels: aws.Int32(maxLabels),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to detect labels: %w", err)
		}
		for _, label := range out.Labels {
			result.Labels = append(result.Labels, Label{
				Name:  aws.ToString(label.Name),
				Score: widen(aws.ToFloat32(label.Confidence)) / 100,
			})
		}
	}

	if req.Features.FaceDetection {
		out, err := client.DetectFaces(ctx, &rekognition.DetectFacesInput{Image: img})
		if err != nil {
			return nil, fmt.Errorf("failed to detect faces: %w", err)
		}

		width, height := imageSize(req.Image)
		for i, face := range out.FaceDetails {
			if i >= maxFaces {
				break
			}
			result.Faces = append(result.Faces, FaceBox{
				BoundingBox: boxToPolygon(face.BoundingBox, width, height),
				Confidence:  widen(aws.ToFloat32(face.Confidence)) / 100,
			})
		}
	}

	return result, nil
}

// imageSize returns pixel dimensions, or 1x1 when the image cannot be decoded so that
// ratio boxes pass through unchanged.
func imageSize(data []byte) (float64, float64) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width == 0 || cfg.Height == 0 {
		return 1, 1
	}
	return float64(cfg.Width), float64(cfg.Height)
}

func boxToPolygon(box *types.BoundingBox, width, height float64) []models.Vertex {
	if box == nil {
		return nil
	}
	left := float64(aws.ToFloat32(box.Left)) * width
	top := float64(aws.ToFloat32(box.Top)) * height
	right := left + float64(aws.ToFloat32(box.Width))*width
	bottom := top + float64(aws.ToFloat32(box.Height))*height

	return []models.Vertex{
		{X: round4(left), Y: round4(top)},
		{X: round4(right), Y: round4(top)},
		{X: round4(right), Y: round4(bottom)},
		{X: round4(left), Y: round4(bottom)},
	}
}

// round4 trims float32 noise from box coordinates.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
