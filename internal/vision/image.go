package vision

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Crop is a square, fixed-size RGB face crop ready for the embedder.
type Crop struct {
	Img *image.RGBA
}

// Side returns the crop's side length in pixels.
func (c *Crop) Side() int {
	return c.Img.Bounds().Dx()
}

// Floats returns the crop as RGB values scaled to [0, 1], row-major,
// three values per pixel. This is the embedder's expected input format.
func (c *Crop) Floats() []float32 {
	bounds := c.Img.Bounds()
	out := make([]float32, 0, bounds.Dx()*bounds.Dy()*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			i := c.Img.PixOffset(x, y)
			out = append(out,
				float32(c.Img.Pix[i])/255,
				float32(c.Img.Pix[i+1])/255,
				float32(c.Img.Pix[i+2])/255,
			)
		}
	}
	return out
}

// ClampBox clamps a bounding box to the frame bounds. Detectors can
// return boxes extending past the frame edges; cropping those unclamped
// would read out of bounds.
func ClampBox(box, frame image.Rectangle) image.Rectangle {
	return box.Intersect(frame)
}

// CropNormalize cuts the box region out of frame, clamped to the frame
// bounds, and resizes it to a side×side RGB crop. An empty region after
// clamping is an error; the caller skips that detection.
func CropNormalize(frame image.Image, box image.Rectangle, side int) (*Crop, error) {
	region := ClampBox(box, frame.Bounds())
	if region.Empty() {
		return nil, fmt.Errorf("box %v lies outside frame %v", box, frame.Bounds())
	}

	resized := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.CatmullRom.Scale(resized, resized.Bounds(), frame, region, draw.Src, nil)

	return &Crop{Img: resized}, nil
}
