package placeholder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"sync"
)

// maxStaticPixels bounds what Static will render.
const maxStaticPixels = 4096 * 4096

// Static renders a flat grey PNG locally and caches it per size.
type Static struct {
	Color color.Color

	mu    sync.Mutex
	cache map[[2]int][]byte
}

// NewStatic returns a Static provider painting the placehold grey.
func NewStatic() *Static {
	return &Static{Color: color.RGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}}
}

func (s *Static) Placeholder(_ context.Context, aspect Ratio, height int) (*Image, error) {
	width := aspect.Width(height)
	if width <= 0 || height <= 0 || width*height > maxStaticPixels {
		return nil, fmt.Errorf("placeholder size %dx%d out of range", width, height)
	}
	data, err := s.render(width, height)
	if err != nil {
		return nil, err
	}
	return &Image{ContentType: "image/png", Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (s *Static) render(width, height int) ([]byte, error) {
	key := [2]int{width, height}
	s.mu.Lock()
	defer s.mu.Unlock()
	if data, ok := s.cache[key]; ok {
		return data, nil
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(s.Color), image.Point{}, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}
	if s.cache == nil {
		s.cache = make(map[[2]int][]byte)
	}
	s.cache[key] = buf.Bytes()
	return buf.Bytes(), nil
}
