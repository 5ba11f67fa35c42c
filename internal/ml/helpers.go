package ml

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed prompts/food_detection.txt
var foodDetectionPrompt string

// buildFoodDetectionPrompt returns the detection prompt, with the current
// catalog names appended as a hint when available. Shared by all providers.
func buildFoodDetectionPrompt(menuNames []string) string {
	if len(menuNames) == 0 {
		return foodDetectionPrompt
	}

	var b strings.Builder
	b.WriteString(foodDetectionPrompt)
	b.WriteString("\nThe cafeteria currently serves the following dishes. Prefer these exact names when an item matches one of them:\n")
	for _, name := range menuNames {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	return b.String()
}

// stripJSONFences removes markdown code fences that some models wrap around
// JSON output despite being told not to.
func stripJSONFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// parseDetections decodes the model's JSON array of detections.
func parseDetections(content string) ([]Detection, error) {
	content = stripJSONFences(content)

	var detections []Detection
	if err := json.Unmarshal([]byte(content), &detections); err != nil {
		return nil, fmt.Errorf("failed to parse detections JSON: %w (response: %s)", err, content)
	}
	return detections, nil
}
