package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/protobuf/encoding/protojson"

	"smart-gallery/domain/models"
	"smart-gallery/domain/services"
)

var visionUnmarshal = protojson.UnmarshalOptions{DiscardUnknown: true}

// analyzeGoogle posts one images:annotate request carrying the enabled feature blocks.
func (c *Client) analyzeGoogle(ctx context.Context, req Request) (*Result, error) {
	var features []*visionpb.Feature
	if req.Features.Tagging {
		features = append(features, &visionpb.Feature{Type: visionpb.Feature_LABEL_DETECTION, MaxResults: maxLabels})
	}
	if req.Features.FaceDetection {
		features = append(features, &visionpb.Feature{Type: visionpb.Feature_FACE_DETECTION, MaxResults: maxFaces})
	}

	body, err := protojson.Marshal(&visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: req.Image},
			Features: features,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal annotate request: %w", err)
	}

	endpoint := c.googleBaseURL + "/v1/images:annotate?key=" + url.QueryEscape(req.Credentials.GoogleAPIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call google vision: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read google vision response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: google vision returned %d: %s", ErrProviderRejected, resp.StatusCode, googleErrorMessage(respBody))
	}

	var batch visionpb.BatchAnnotateImagesResponse
	if err := visionUnmarshal.Unmarshal(respBody, &batch); err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrMalformedResponse, err)
	}
	if len(batch.GetResponses()) == 0 {
		return nil, fmt.Errorf("%w: no annotate responses", services.ErrMalformedResponse)
	}

	result := &Result{}
	for _, annotated := range batch.GetResponses() {
		if status := annotated.GetError(); status != nil && status.GetMessage() != "" {
			return nil, fmt.Errorf("%w: %s", services.ErrMalformedResponse, status.GetMessage())
		}
		for _, label := range annotated.GetLabelAnnotations() {
			result.Labels = append(result.Labels, Label{
				Name:  label.GetDescription(),
				Score: widen(label.GetScore()),
			})
		}
		for _, face := range annotated.GetFaceAnnotations() {
			var vertices []models.Vertex
			for _, v := range face.GetBoundingPoly().GetVertices() {
				vertices = append(vertices, models.Vertex{X: float64(v.GetX()), Y: float64(v.GetY())})
			}
			result.Faces = append(result.Faces, FaceBox{
				BoundingBox: vertices,
				Confidence:  widen(face.GetDetectionConfidence()),
			})
		}
	}
	return result, nil
}

func googleErrorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return string(body)
}

// widen converts a float32 score to the float64 with the same shortest decimal form,
// so 0.92 on the wire stays 0.92 instead of 0.9200000166893005.
func widen(v float32) float64 {
	f, err := strconv.ParseFloat(strconv.FormatFloat(float64(v), 'g', -1, 32), 64)
	if err != nil {
		return float64(v)
	}
	return f
}
