package ml

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const openAIModel = openai.ChatModelGPT4_1Mini

// OpenAIDetector detects food items using the OpenAI chat API. Alternate
// backend for deployments without a Gemini key.
type OpenAIDetector struct {
	client *openai.Client
}

// NewOpenAIDetector creates an OpenAI-backed food detector.
func NewOpenAIDetector(apiKey string) *OpenAIDetector {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIDetector{client: &client}
}

func (d *OpenAIDetector) Name() string {
	return openAIModel
}

// DetectFood sends the food image to OpenAI and parses the JSON detection
// list. The model answers with a bare JSON array, so no response-format
// constraint is set; markdown fences are stripped before parsing.
func (d *OpenAIDetector) DetectFood(ctx context.Context, imageData []byte, menuNames []string) ([]Detection, error) {
	resized, err := ResizeImage(imageData, 800)
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}

	prompt := buildFoodDetectionPrompt(menuNames)
	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(resized)

	resp, err := d.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openAIModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(prompt),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
							openai.TextContentPart("Identify the food items on this tray."),
							openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
								URL:    imageURL,
								Detail: "low",
							}),
						},
					},
				},
			},
		},
		MaxTokens: openai.Int(500),
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("no response from OpenAI")
	}

	return parseDetections(resp.Choices[0].Message.Content)
}
