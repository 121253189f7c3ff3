package domain

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ImageOrigin tells how an image was selected
type ImageOrigin string

const (
	OriginPicker ImageOrigin = "picker"
	OriginDrop   ImageOrigin = "drop"
	OriginSample ImageOrigin = "sample"
)

// ImageSource is a raw selection before validation
type ImageSource struct {
	Origin       ImageOrigin
	Filename     string
	DeclaredType string // MIME type reported by the uploader, may be empty
	Data         []byte
}

// Image is a validated source image ready for submission
type Image struct {
	Filename string
	MIMEType string
	Data     []byte
	Origin   ImageOrigin
}

// NewImage validates a selection and sniffs its media type from content.
// Drops must also declare an image/* type.
func NewImage(src ImageSource) (*Image, error) {
	if len(src.Data) == 0 {
		return nil, ErrImageRequired
	}

	if src.Origin == OriginDrop && !isImageType(src.DeclaredType) {
		return nil, fmt.Errorf("%w: declared type %q", ErrNotAnImage, src.DeclaredType)
	}

	detected := mimetype.Detect(src.Data)
	if !isImageType(detected.String()) {
		return nil, fmt.Errorf("%w: detected type %q", ErrNotAnImage, detected.String())
	}

	filename := strings.TrimSpace(src.Filename)
	if filename == "" {
		filename = "image" + detected.Extension()
	}

	return &Image{
		Filename: filename,
		MIMEType: baseType(detected.String()),
		Data:     src.Data,
		Origin:   src.Origin,
	}, nil
}

// Preview renders the image as a data URL
func (i *Image) Preview() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Size returns the payload size in bytes
func (i *Image) Size() int {
	return len(i.Data)
}

func isImageType(t string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(t)), "image/")
}

// baseType strips parameters such as "; charset=..."
func baseType(t string) string {
	if idx := strings.IndexByte(t, ';'); idx >= 0 {
		return strings.TrimSpace(t[:idx])
	}
	return t
}
