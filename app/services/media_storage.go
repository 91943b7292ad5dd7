package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// StoredMedia describes a file written by MediaStorage
type StoredMedia struct {
	StoragePath string
	PublicURL   string
	MimeType    string
	SizeBytes   int64
	Width       *int
	Height      *int
}

// MediaStorage writes generated assets under a local directory that is
// served publicly from PublicBaseURL.
type MediaStorage struct {
	dir           string
	publicBaseURL string
	maxImageWidth int
}

// NewMediaStorage creates a storage rooted at dir
func NewMediaStorage(dir, publicBaseURL string, maxImageWidth int) *MediaStorage {
	return &MediaStorage{
		dir:           dir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		maxImageWidth: maxImageWidth,
	}
}

// Dir returns the storage root
func (s *MediaStorage) Dir() string {
	return s.dir
}

// SaveImage normalises an image (downscaling it when wider than the
// configured maximum) and writes it as PNG or JPEG.
func (s *MediaStorage) SaveImage(initiativeID string, data []byte, mimeType string) (*StoredMedia, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode generated image: %w", err)
	}

	resized := resizeToWidth(img, s.maxImageWidth)
	if resized != img || format == "webp" || format == "gif" {
		buf := &bytes.Buffer{}
		if format == "jpeg" {
			err = jpeg.Encode(buf, resized, &jpeg.Options{Quality: 90})
			mimeType = "image/jpeg"
		} else {
			err = png.Encode(buf, resized)
			mimeType = "image/png"
		}
		if err != nil {
			return nil, fmt.Errorf("failed to encode image: %w", err)
		}
		data = buf.Bytes()
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	stored, err := s.write(initiativeID, "images", extensionFor(mimeType, ".png"), data)
	if err != nil {
		return nil, err
	}
	b := resized.Bounds()
	w, h := b.Dx(), b.Dy()
	stored.MimeType = mimeType
	stored.Width = &w
	stored.Height = &h
	return stored, nil
}

// SaveVideo writes video bytes as is
func (s *MediaStorage) SaveVideo(initiativeID string, data []byte, mimeType string) (*StoredMedia, error) {
	if mimeType == "" {
		mimeType = "video/mp4"
	}
	stored, err := s.write(initiativeID, "videos", extensionFor(mimeType, ".mp4"), data)
	if err != nil {
		return nil, err
	}
	stored.MimeType = mimeType
	return stored, nil
}

func (s *MediaStorage) write(initiativeID, kind, ext string, data []byte) (*StoredMedia, error) {
	segment, err := sanitizeSegment(initiativeID)
	if err != nil {
		return nil, err
	}

	baseDir := filepath.Join(s.dir, segment, kind)
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	filename := uuid.New().String() + ext
	fullPath := filepath.Join(baseDir, filename)
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		_ = os.Remove(fullPath)
		return nil, fmt.Errorf("failed to write media file: %w", err)
	}

	return &StoredMedia{
		StoragePath: fullPath,
		PublicURL:   strings.Join([]string{s.publicBaseURL, segment, kind, filename}, "/"),
		SizeBytes:   int64(len(data)),
	}, nil
}

// sanitizeSegment rejects values that could escape the storage root
func sanitizeSegment(segment string) (string, error) {
	cleaned := filepath.Clean(segment)
	if segment == "" || cleaned == "." || cleaned == ".." || strings.ContainsAny(cleaned, `/\`) {
		return "", fmt.Errorf("invalid storage segment %q", segment)
	}
	return cleaned, nil
}

func extensionFor(mimeType, fallback string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "video/mp4":
		return ".mp4"
	case "video/quicktime":
		return ".mov"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return fallback
}

// resizeToWidth scales src down so it is at most maxWidth wide
func resizeToWidth(src image.Image, maxWidth int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxWidth <= 0 || w <= maxWidth {
		return src
	}

	nw := maxWidth
	nh := int(float64(h) * float64(maxWidth) / float64(w))
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	imagedraw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, imagedraw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

// placeholderImage renders a flat square PNG used when generation is unavailable
func placeholderImage(size int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	imagedraw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 73, G: 109, B: 137, A: 255}}, image.Point{}, imagedraw.Src)
	buf := &bytes.Buffer{}
	_ = png.Encode(buf, img)
	return buf.Bytes()
}
