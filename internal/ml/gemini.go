package ml

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const geminiModel = "gemini-2.5-flash"

// GeminiDetector detects food items using the Gemini API.
type GeminiDetector struct {
	client *genai.Client
}

// NewGeminiDetector creates a Gemini-backed food detector.
func NewGeminiDetector(ctx context.Context, apiKey string) (*GeminiDetector, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiDetector{client: client}, nil
}

func (d *GeminiDetector) Name() string {
	return geminiModel
}

// DetectFood sends the food image to Gemini and parses the JSON detection
// list. The image is resized first to keep token costs down.
func (d *GeminiDetector) DetectFood(ctx context.Context, imageData []byte, menuNames []string) ([]Detection, error) {
	resized, err := ResizeImage(imageData, 800)
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}

	prompt := buildFoodDetectionPrompt(menuNames)

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
				{InlineData: &genai.Blob{Data: resized, MIMEType: "image/jpeg"}},
			},
		},
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	result, err := d.client.Models.GenerateContent(ctx, geminiModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	content := result.Text()
	if content == "" {
		return nil, errors.New("no response from Gemini")
	}

	return parseDetections(content)
}
