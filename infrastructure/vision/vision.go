package vision

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"smart-gallery/domain/models"
	"smart-gallery/domain/services"
	"smart-gallery/pkg/logger"
)

const (
	ProviderGoogle = "google"
	ProviderAWS    = "aws"
	ProviderGemini = "gemini"

	maxLabels = 20
	maxFaces  = 10

	defaultTimeout = 30 * time.Second
)

// ErrProviderRejected wraps non-success answers from a provider, such as a bad API key.
var ErrProviderRejected = errors.New("vision provider rejected the request")

// Features selects which detections a call performs.
type Features struct {
	Tagging       bool
	FaceDetection bool
}

func (f Features) Any() bool {
	return f.Tagging || f.FaceDetection
}

// Credentials holds every provider secret; only the selected provider's fields are read.
type Credentials struct {
	GoogleAPIKey string
	AWSAccessKey string
	AWSSecretKey string
	AWSRegion    string
	GeminiAPIKey string
	GeminiModel  string
}

type Request struct {
	Provider    string
	Credentials Credentials
	Image       []byte
	Features    Features
}

// Label is a detected concept with a score in 0..1.
type Label struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// FaceBox is a detected face polygon with a detection confidence in 0..1.
type FaceBox struct {
	BoundingBox []models.Vertex `json:"bounding_box"`
	Confidence  float64         `json:"confidence"`
}

// Result is the provider-independent detection output.
type Result struct {
	Labels []Label   `json:"labels"`
	Faces  []FaceBox `json:"faces"`
}

// Analyzer is implemented by Client and by test doubles.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
}

// Client calls exactly one configured vision provider per request.
type Client struct {
	httpClient     *http.Client
	googleBaseURL  string
	timeout        time.Duration
	newRekognition RekognitionFactory
	newGemini      GeminiFactory
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithGoogleBaseURL points the Google provider at another host, e.g. a test server.
func WithGoogleBaseURL(baseURL string) Option {
	return func(c *Client) { c.googleBaseURL = baseURL }
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithRekognitionFactory(factory RekognitionFactory) Option {
	return func(c *Client) { c.newRekognition = factory }
}

func WithGeminiFactory(factory GeminiFactory) Option {
	return func(c *Client) { c.newGemini = factory }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:     &http.Client{},
		googleBaseURL:  "https://vision.googleapis.com",
		timeout:        defaultTimeout,
		newRekognition: newRekognitionClient,
		newGemini:      newGeminiModels,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze validates the request, calls the selected provider under the client timeout
// and returns its normalized result.
func (c *Client) Analyze(ctx context.Context, req Request) (*Result, error) {
	if len(req.Image) == 0 {
		return nil, services.ErrEmptyImage
	}
	if err := checkCredentials(req); err != nil {
		return nil, err
	}
	if !req.Features.Any() {
		return &Result{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var (
		result *Result
		err    error
	)
	switch req.Provider {
	case ProviderGoogle:
		result, err = c.analyzeGoogle(ctx, req)
	case ProviderAWS:
		result, err = c.analyzeRekognition(ctx, req)
	case ProviderGemini:
		result, err = c.analyzeGemini(ctx, req)
	}
	if err != nil {
		err = classify(ctx, err)
		logger.VisionError("analyze_failed", "Vision provider call failed", err, map[string]interface{}{
			"provider": req.Provider,
			"kind":     string(services.KindOf(err)),
		})
		return nil, err
	}

	logger.Vision("analyze_done", "Vision provider call completed", map[string]interface{}{
		"provider": req.Provider,
		"labels":   len(result.Labels),
		"faces":    len(result.Faces),
		"duration": time.Since(start).String(),
	})
	return result, nil
}

func checkCredentials(req Request) error {
	creds := req.Credentials
	switch req.Provider {
	case ProviderGoogle:
		if creds.GoogleAPIKey == "" {
			return fmt.Errorf("%w: google vision api key", services.ErrMissingCredential)
		}
	case ProviderAWS:
		if creds.AWSAccessKey == "" || creds.AWSSecretKey == "" {
			return fmt.Errorf("%w: aws access key pair", services.ErrMissingCredential)
		}
	case ProviderGemini:
		if creds.GeminiAPIKey == "" {
			return fmt.Errorf("%w: gemini api key", services.ErrMissingCredential)
		}
	default:
		return fmt.Errorf("%w: %q", services.ErrUnsupportedProvider, req.Provider)
	}
	return nil
}

// classify maps deadline and network timeouts to ErrTimeout.
func classify(ctx context.Context, err error) error {
	if services.KindOf(err) != services.KindOther {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", services.ErrTimeout, err)
	}
	return err
}
