package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const defaultServiceURL = "http://localhost:8000"

// Client talks to the face inference service over HTTP. The service
// exposes a detection endpoint returning bounding boxes with scores and
// an embedding endpoint returning a fixed-length vector for a face crop.
// It implements both Detector and Embedder.
type Client struct {
	baseURL string
	dim     int
	client  *http.Client
}

// NewClient creates an inference client. dim is the embedder's fixed
// output dimensionality, used to validate responses.
func NewClient(baseURL string, dim int) *Client {
	if baseURL == "" {
		baseURL = defaultServiceURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		dim:     dim,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Dim() int {
	return c.dim
}

type detectionResponse struct {
	Faces []struct {
		BBox     []float64 `json:"bbox"` // [x1, y1, x2, y2]
		DetScore float64   `json:"det_score"`
	} `json:"faces"`
}

type embeddingResponse struct {
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
}

// Detect posts the frame to the detection endpoint and returns the
// proposed face boxes in no particular order.
func (c *Client) Detect(ctx context.Context, frame image.Image) ([]Detection, error) {
	if frame == nil || frame.Bounds().Empty() {
		return nil, fmt.Errorf("%w: zero-sized frame", ErrInference)
	}

	body, err := c.postImage(ctx, "/detect", frame)
	if err != nil {
		return nil, err
	}

	var resp detectionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: parsing detection response: %v", ErrInference, err)
	}

	detections := make([]Detection, 0, len(resp.Faces))
	for _, face := range resp.Faces {
		if len(face.BBox) != 4 {
			continue
		}
		detections = append(detections, Detection{
			Box: image.Rect(
				int(face.BBox[0]), int(face.BBox[1]),
				int(face.BBox[2]), int(face.BBox[3]),
			),
			Confidence: face.DetScore,
		})
	}
	return detections, nil
}

// Embed posts the crop to the embedding endpoint.
func (c *Client) Embed(ctx context.Context, crop *Crop) ([]float32, error) {
	body, err := c.postImage(ctx, "/embed", crop.Img)
	if err != nil {
		return nil, err
	}

	var resp embeddingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: parsing embedding response: %v", ErrInference, err)
	}
	if len(resp.Embedding) != c.dim {
		return nil, fmt.Errorf("%w: service returned %d dimensions, want %d",
			ErrInference, len(resp.Embedding), c.dim)
	}
	return resp.Embedding, nil
}

// postImage JPEG-encodes the image into a multipart form and posts it.
func (c *Client) postImage(ctx context.Context, endpoint string, img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if err := jpeg.Encode(part, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrInference, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: service status %d: %s", ErrInference, resp.StatusCode, string(body))
	}
	return body, nil
}
