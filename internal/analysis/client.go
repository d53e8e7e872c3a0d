// Package analysis sends saved incident audio to the cloud analysis
// service and parses the structured report it returns.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

const defaultTimeout = 60 * time.Second

// Client issues one-shot analysis requests. It performs no retry; callers
// decide retry policy.
type Client struct {
	apiKey  string
	model   string
	timeout time.Duration
}

// NewClient creates an analysis client for the given model.
func NewClient(apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
	}
}

// responseSchema constrains the service to the seven-field report shape
// with the four-value threat level enum.
func responseSchema() *genai.Schema {
	stringList := &genai.Schema{
		Type:  genai.TypeArray,
		Items: &genai.Schema{Type: genai.TypeString},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary":          {Type: genai.TypeString},
			"sentiment":        {Type: genai.TypeString},
			"threatLevel":      {Type: genai.TypeString, Enum: []string{"Low", "Medium", "High", "Critical"}},
			"keyEvents":        stringList,
			"recommendations":  stringList,
			"currentSituation": {Type: genai.TypeString},
			"predictedNextMoves": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{
			"summary", "sentiment", "threatLevel", "keyEvents",
			"recommendations", "currentSituation", "predictedNextMoves",
		},
	}
}

// Analyze sends one incident's combined audio as a single request and
// parses the response. Network and service failures are propagated with
// their detail; a hung request fails after the configured timeout.
func (c *Client) Analyze(ctx context.Context, audioData []byte, mimeType string) (*Result, error) {
	if c.apiKey == "" {
		return nil, errors.New("API key required: set GEMINI_API_KEY or run 'echosave config set-key'")
	}

	if len(audioData) == 0 {
		return nil, errors.New("no audio to analyze")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis client: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(audioData, mimeType),
			genai.NewPartFromText(instruction),
		}, genai.RoleUser),
	}

	resp, err := client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("analysis request timed out after %s: %w", c.timeout, err)
		}
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, ErrEmptyResponse
	}

	return Decode(text)
}
