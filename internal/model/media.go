package model

import "errors"

// MaxMediaSizeBytes is the upload size ceiling (50 MiB).
const MaxMediaSizeBytes = 50 * 1024 * 1024

// Supported content types for post media.
const (
	ContentTypeJPEG      = "image/jpeg"
	ContentTypePNG       = "image/png"
	ContentTypeWebP      = "image/webp"
	ContentTypeMP4       = "video/mp4"
	ContentTypeQuicktime = "video/quicktime" // MOV
)

var allowedImageTypes = map[string]struct{}{
	ContentTypeJPEG: {},
	ContentTypePNG:  {},
	ContentTypeWebP: {},
}

var allowedVideoTypes = map[string]struct{}{
	ContentTypeMP4:       {},
	ContentTypeQuicktime: {},
}

// IsAllowedImageType reports if contentType is a supported image format.
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}

// IsAllowedVideoType reports if contentType is a supported video format.
func IsAllowedVideoType(contentType string) bool {
	_, ok := allowedVideoTypes[contentType]
	return ok
}

// IsAllowedMediaType reports if contentType is accepted by the pipeline.
func IsAllowedMediaType(contentType string) bool {
	return IsAllowedImageType(contentType) || IsAllowedVideoType(contentType)
}

// Preview thumbnail bounds for image media.
const (
	PreviewMaxWidth  = 800
	PreviewMaxHeight = 800
)

// PostMediaFolder is the object-store prefix for published post media.
const PostMediaFolder = "posts"

// Error codes for HTTP responses
const (
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeInvalidMediaType = "INVALID_MEDIA_TYPE"
)

// Domain errors for media validation
var (
	ErrFileTooLarge     = errors.New("file too large (max 50MB)")
	ErrInvalidMediaType = errors.New("invalid format: use JPG, PNG, WEBP, MP4 or MOV")
)

// UploadResult is the published location of a media object.
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}
