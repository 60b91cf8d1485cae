package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeDataURI(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		wantData string
		wantType string
		wantErr  bool
	}{
		{"base64", "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("hola")), "hola", "image/png", false},
		{"unpadded base64", "data:image/png;base64," + base64.RawStdEncoding.EncodeToString([]byte("hola")), "hola", "image/png", false},
		{"percent encoded", "data:text/plain,hola%20mundo", "hola mundo", "text/plain", false},
		{"no comma", "data:image/png;base64", "", "", true},
		{"not a data uri", "https://x/y.png", "", "", true},
		{"bad base64", "data:image/png;base64,@@@", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, mediaType, err := DecodeDataURI(tt.uri)
			if tt.wantErr {
				if !errors.Is(err, ErrBadDataURI) {
					t.Errorf("Expected ErrBadDataURI, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if string(data) != tt.wantData || mediaType != tt.wantType {
				t.Errorf("Expected %q %q, got %q %q", tt.wantData, tt.wantType, data, mediaType)
			}
		})
	}
}

func TestAssetsLoadDataURI(t *testing.T) {
	img, err := NewAssets(nil).Load(context.Background(), solidPNG(t, 4, 3, color.Black))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
		t.Errorf("Expected 4x3 image, got %v", img.Bounds())
	}
}

func TestAssetsLoadHTTP(t *testing.T) {
	uri := solidPNG(t, 2, 2, color.Black)
	raw, _, _ := DecodeDataURI(uri)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/firma.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(raw)
	}))
	defer server.Close()

	assets := NewAssets(server.Client())
	img, err := assets.Load(context.Background(), server.URL+"/firma.png")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Bounds().Dx() != 2 {
		t.Errorf("Expected 2px wide image, got %v", img.Bounds())
	}

	if _, err := assets.Load(context.Background(), server.URL+"/falta.png"); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("Expected 404 error, got %v", err)
	}
}

func TestAssetsLoadRejectsUnknownSources(t *testing.T) {
	_, err := NewAssets(nil).Load(context.Background(), "file:///etc/passwd")
	if !errors.Is(err, ErrUnsupportedAsset) {
		t.Errorf("Expected ErrUnsupportedAsset, got %v", err)
	}
}

func TestAssetsLoadRejectsNonImages(t *testing.T) {
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, 16))
	if _, err := NewAssets(nil).Load(context.Background(), uri); err == nil {
		t.Error("Expected decode error")
	}
}
