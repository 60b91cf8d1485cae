package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrUnsupportedAsset = errors.New("unsupported image source")
	ErrBadDataURI       = errors.New("malformed data URI")
)

const maxAssetBytes = 10 << 20

// AssetLoader fetches and decodes an image referenced by a page.
type AssetLoader interface {
	Load(ctx context.Context, src string) (image.Image, error)
}

// Assets loads data URIs and http(s) images.
type Assets struct {
	httpClient *http.Client
}

// NewAssets creates an image loader. A nil client gets a 30 second timeout.
func NewAssets(client *http.Client) *Assets {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Assets{httpClient: client}
}

// Load decodes a data URI or fetches an http(s) image.
func (a *Assets) Load(ctx context.Context, src string) (image.Image, error) {
	switch {
	case strings.HasPrefix(src, "data:"):
		data, _, err := DecodeDataURI(src)
		if err != nil {
			return nil, err
		}
		return decodeImage(data)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return a.fetch(ctx, src)
	}
	return nil, fmt.Errorf("%w: %.40s", ErrUnsupportedAsset, src)
}

func (a *Assets) fetch(ctx context.Context, src string) (image.Image, error) {
	if _, err := url.Parse(src); err != nil {
		return nil, fmt.Errorf("failed to parse image URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return decodeImage(data)
}

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// DecodeDataURI returns the payload and media type of a data URI. Both base64
// and percent-encoded payloads are accepted.
func DecodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", ErrBadDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", ErrBadDataURI
	}
	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		raw, err := url.PathUnescape(payload)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrBadDataURI, err)
		}
		return []byte(raw), mediaType, nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// some canvases emit unpadded output
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrBadDataURI, err)
		}
	}
	return data, mediaType, nil
}
