// Package media derives local previews for picked assets and publishes
// finished uploads to an S3-compatible object store.
package media

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"clix/internal/model"
)

// FilePreviewer materializes previews as files under a scratch directory.
// Images are downscaled to thumbnail bounds; videos are kept verbatim since
// decoding them locally is not worth it for a preview.
type FilePreviewer struct {
	dir string
}

// NewFilePreviewer ensures the scratch directory exists.
func NewFilePreviewer(dir string) (*FilePreviewer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create preview dir: %w", err)
	}
	return &FilePreviewer{dir: dir}, nil
}

// Preview writes a preview file and returns its path.
func (p *FilePreviewer) Preview(data []byte, contentType string) (string, error) {
	if model.IsAllowedImageType(contentType) {
		if ref, err := p.imagePreview(data); err == nil {
			return ref, nil
		} else {
			// Some accepted formats (webp) may not decode locally; fall back
			// to the raw bytes so the preview still shows.
			log.Printf("[Media] Thumbnail decode failed, keeping original: %v", err)
		}
	}
	return p.writeRaw(data, extensionFor(contentType))
}

func (p *FilePreviewer) imagePreview(data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	thumb := imaging.Fit(img, model.PreviewMaxWidth, model.PreviewMaxHeight, imaging.Lanczos)

	ref := filepath.Join(p.dir, uuid.NewString()+".jpg")
	if err := imaging.Save(thumb, ref, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("save thumbnail: %w", err)
	}
	return ref, nil
}

func (p *FilePreviewer) writeRaw(data []byte, ext string) (string, error) {
	ref := filepath.Join(p.dir, uuid.NewString()+ext)
	if err := os.WriteFile(ref, data, 0o644); err != nil {
		return "", fmt.Errorf("write preview: %w", err)
	}
	return ref, nil
}

// Release deletes the preview file.
func (p *FilePreviewer) Release(ref string) {
	if ref == "" {
		return
	}
	if err := os.Remove(ref); err != nil && !os.IsNotExist(err) {
		log.Printf("[Media] Release preview failed: ref=%s err=%v", ref, err)
	}
}

func extensionFor(contentType string) string {
	switch contentType {
	case model.ContentTypeJPEG:
		return ".jpg"
	case model.ContentTypePNG:
		return ".png"
	case model.ContentTypeWebP:
		return ".webp"
	case model.ContentTypeMP4:
		return ".mp4"
	case model.ContentTypeQuicktime:
		return ".mov"
	default:
		return ".bin"
	}
}
