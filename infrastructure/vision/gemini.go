package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"smart-gallery/domain/services"
	"smart-gallery/pkg/logger"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiAPI is the content generation surface of the genai client.
type GeminiAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiFactory func(ctx context.Context, creds Credentials) (GeminiAPI, error)

func newGeminiModels(ctx context.Context, creds Credentials) (GeminiAPI, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  creds.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client.Models, nil
}

const geminiLabelPrompt = `List up to 20 short, lowercase labels describing the main objects, scenes and activities in this photo.
Give each label a confidence score between 0 and 1.`

var geminiLabelSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"labels": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":  {Type: genai.TypeString},
					"score": {Type: genai.TypeNumber},
				},
				Required: []string{"name", "score"},
			},
		},
	},
	Required: []string{"labels"},
}

// analyzeGemini asks a Gemini model for labels. Gemini has no face detection, so faces
// stay empty even when requested.
func (c *Client) analyzeGemini(ctx context.Context, req Request) (*Result, error) {
	result := &Result{}
	if req.Features.FaceDetection {
		logger.Vision("gemini_faces_unsupported", "Gemini provider does not detect faces", nil)
	}
	if !req.Features.Tagging {
		return result, nil
	}

	gen, err := c.newGemini(ctx, req.Credentials)
	if err != nil {
		return nil, err
	}

	model := req.Credentials.GeminiModel
	if model == "" {
		model = defaultGeminiModel
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(req.Image, http.DetectContentType(req.Image)),
			genai.NewPartFromText(geminiLabelPrompt),
		}, genai.RoleUser),
	}

	resp, err := gen.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   geminiLabelSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate labels: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("%w: empty gemini response", services.ErrMalformedResponse)
	}

	var parsed struct {
		Labels []Label `json:"labels"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", services.ErrMalformedResponse, err)
	}

	for i, label := range parsed.Labels {
		if i >= maxLabels {
			break
		}
		result.Labels = append(result.Labels, Label{Name: label.Name, Score: label.Score})
	}
	return result, nil
}
