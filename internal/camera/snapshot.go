package camera

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"time"

	_ "golang.org/x/image/bmp"
)

// Snapshot polls an HTTP stills endpoint, the kind most IP cameras
// expose alongside their video stream.
type Snapshot struct {
	url    string
	client *http.Client
}

func NewSnapshot(url string) *Snapshot {
	return &Snapshot{
		url: url,
		client: &http.Client{
			// A hung camera must not absorb more than a few ticks.
			Timeout: 2 * time.Second,
		},
	}
}

func (s *Snapshot) NextFrame(ctx context.Context) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot endpoint returned status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return img, nil
}

func (s *Snapshot) Close() error { return nil }
