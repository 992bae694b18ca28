package placeholder

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the image service used when none is configured.
const DefaultBaseURL = "https://placehold.co"

// Remote fetches placeholders from an image service that serves
// `<base>/<w>x<h>?text=...` style URLs.
type Remote struct {
	BaseURL string
	Text    string
	// Ext is appended to the size segment, e.g. ".jpg". Empty keeps the
	// service's default format.
	Ext    string
	Client *http.Client
}

// NewRemote builds a Remote with a bounded HTTP client.
func NewRemote(baseURL string, timeout time.Duration) *Remote {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Remote{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Text:    "No Data",
		Client:  &http.Client{Timeout: timeout},
	}
}

// URL returns the request URL for the given shape and label.
func (r *Remote) URL(aspect Ratio, height int, text string) string {
	u := fmt.Sprintf("%s/%dx%d%s", r.BaseURL, aspect.Width(height), height, r.Ext)
	if text != "" {
		u += "?text=" + url.QueryEscape(text)
	}
	return u
}

func (r *Remote) Placeholder(ctx context.Context, aspect Ratio, height int) (*Image, error) {
	return r.Fetch(ctx, aspect, height, r.Text)
}

// Fetch retrieves an image labelled with text.
func (r *Remote) Fetch(ctx context.Context, aspect Ratio, height int, text string) (*Image, error) {
	if height <= 0 {
		return nil, fmt.Errorf("placeholder height must be positive, got %d", height)
	}
	target := r.URL(aspect, height, text)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("placeholder fetch %s: %w", target, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("placeholder fetch %s: status %d", target, resp.StatusCode)
	}
	log.Ctx(ctx).Debug().Str("url", target).Msg("placeholder fetched")
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &Image{ContentType: ct, Body: resp.Body}, nil
}
