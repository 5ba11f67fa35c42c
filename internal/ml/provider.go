package ml

import "context"

// Detection is one food guess from the vision service. The wire names match
// what the models are prompted to emit. EstimatedPrice may be zero when the
// model supplied none.
type Detection struct {
	ClassName      string  `json:"class_name"`
	Confidence     float64 `json:"confidence"`
	EstimatedPrice float64 `json:"estimated_price"`
}

// FoodDetector is a vision backend that lists the food items visible in an
// image. menuNames is an optional hint of valid catalog names; providers may
// ignore it. The returned list is unordered and may contain duplicates.
type FoodDetector interface {
	Name() string
	DetectFood(ctx context.Context, imageData []byte, menuNames []string) ([]Detection, error)
}

// EmbeddingClient computes a fixed-length face embedding for an image.
type EmbeddingClient interface {
	FaceEmbedding(ctx context.Context, imageData []byte, filename string) ([]float32, error)
}
