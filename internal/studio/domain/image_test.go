package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough of a PNG for content sniffing
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestNewImage(t *testing.T) {
	tests := []struct {
		name     string
		src      ImageSource
		wantErr  error
		wantName string
	}{
		{
			name:     "picked png",
			src:      ImageSource{Origin: OriginPicker, Filename: "cat.png", Data: pngHeader},
			wantName: "cat.png",
		},
		{
			name:     "dropped png with declared type",
			src:      ImageSource{Origin: OriginDrop, Filename: "cat.png", DeclaredType: "image/png", Data: pngHeader},
			wantName: "cat.png",
		},
		{
			name:     "missing filename gets one from content",
			src:      ImageSource{Origin: OriginPicker, Data: pngHeader},
			wantName: "image.png",
		},
		{
			name:    "dropped file declared as text",
			src:     ImageSource{Origin: OriginDrop, Filename: "notes.txt", DeclaredType: "text/plain", Data: pngHeader},
			wantErr: ErrNotAnImage,
		},
		{
			name:    "text content",
			src:     ImageSource{Origin: OriginPicker, Filename: "fake.png", Data: []byte("hello world, not an image")},
			wantErr: ErrNotAnImage,
		},
		{
			name:    "empty payload",
			src:     ImageSource{Origin: OriginPicker, Filename: "empty.png"},
			wantErr: ErrImageRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := NewImage(tt.src)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, img)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantName, img.Filename)
			assert.Equal(t, "image/png", img.MIMEType)
			assert.Equal(t, tt.src.Origin, img.Origin)
			assert.Equal(t, len(pngHeader), img.Size())
		})
	}
}

func TestImage_Preview(t *testing.T) {
	img, err := NewImage(ImageSource{Origin: OriginSample, Filename: SampleImageFilename, Data: pngHeader})
	require.NoError(t, err)

	preview := img.Preview()
	assert.True(t, strings.HasPrefix(preview, "data:image/png;base64,"))
}

func TestVideoFilename(t *testing.T) {
	assert.Equal(t, "pixeldojo_abc-123.mp4", VideoFilename("abc-123"))
}
