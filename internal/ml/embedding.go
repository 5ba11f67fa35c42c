package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// embeddingTimeout bounds one call to the embedding service. Model inference
// can take a while on cold start.
const embeddingTimeout = 60 * time.Second

// EmbeddingService talks to the external face-embedding service over HTTP.
// The service accepts one image and returns {"embedding": [..]}.
type EmbeddingService struct {
	baseURL string
	client  *http.Client
}

// NewEmbeddingService creates a client for the embedding service at baseURL.
func NewEmbeddingService(baseURL string) *EmbeddingService {
	return &EmbeddingService{
		baseURL: baseURL,
		client:  &http.Client{Timeout: embeddingTimeout},
	}
}

// FaceEmbedding uploads a face image and returns its embedding vector.
func (s *EmbeddingService) FaceEmbedding(ctx context.Context, imageData []byte, filename string) ([]float32, error) {
	if filename == "" {
		filename = "face.jpg"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("face_image", filename)
	if err != nil {
		return nil, fmt.Errorf("could not create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("could not write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("could not finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/face/embedding", &body)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, respBody)
	}

	var result struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("could not decode embedding response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("embedding service returned no embedding")
	}

	return result.Embedding, nil
}
