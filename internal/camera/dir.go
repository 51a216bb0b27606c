package camera

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Dir replays image files from a directory in name order, looping
// forever. Useful for development without a camera.
type Dir struct {
	mu    sync.Mutex
	files []string
	next  int
}

func NewDir(path string) (*Dir, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading frame directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png", ".bmp":
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no image files in %s", path)
	}
	sort.Strings(files)

	return &Dir{files: files}, nil
}

func (d *Dir) NextFrame(ctx context.Context) (image.Image, error) {
	d.mu.Lock()
	path := d.files[d.next]
	d.next = (d.next + 1) % len(d.files)
	d.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening frame %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding frame %s: %w", path, err)
	}
	return img, nil
}

func (d *Dir) Close() error { return nil }
