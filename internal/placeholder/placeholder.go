// Package placeholder supplies the "no data" image a consumer receives when
// its session has nothing live to deliver.
package placeholder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Image is a streamed image body. The caller must close Body.
type Image struct {
	ContentType string
	Body        io.ReadCloser
}

// Provider produces a placeholder image for the given shape.
type Provider interface {
	Placeholder(ctx context.Context, aspect Ratio, height int) (*Image, error)
}

// Ratio is an aspect ratio stored as width over height.
type Ratio float64

// DefaultRatio is 16:9.
const DefaultRatio Ratio = 16.0 / 9.0

// ParseRatio accepts "W:H" (e.g. "16:9") or a bare decimal. A bare decimal
// is read as height over width, so "0.5625" is also 16:9.
func ParseRatio(s string) (Ratio, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultRatio, nil
	}
	if w, h, ok := strings.Cut(s, ":"); ok {
		wf, err := strconv.ParseFloat(strings.TrimSpace(w), 64)
		if err != nil {
			return 0, fmt.Errorf("aspect ratio %q: %w", s, err)
		}
		hf, err := strconv.ParseFloat(strings.TrimSpace(h), 64)
		if err != nil {
			return 0, fmt.Errorf("aspect ratio %q: %w", s, err)
		}
		if wf <= 0 || hf <= 0 {
			return 0, fmt.Errorf("aspect ratio %q must be positive", s)
		}
		return Ratio(wf / hf), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("aspect ratio %q: %w", s, err)
	}
	if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("aspect ratio %q must be positive", s)
	}
	return Ratio(1 / v), nil
}

// Width returns the rounded width for height.
func (r Ratio) Width(height int) int {
	return int(math.Round(float64(height) * float64(r)))
}

// Fallback tries each provider in turn and returns the first image served.
type Fallback []Provider

func (f Fallback) Placeholder(ctx context.Context, aspect Ratio, height int) (*Image, error) {
	var errs []error
	for _, p := range f {
		img, err := p.Placeholder(ctx, aspect, height)
		if err == nil {
			return img, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, errors.New("placeholder: no providers configured")
	}
	return nil, errors.Join(errs...)
}
