package controller

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/cuongbtq/pixeldojo-studio/internal/studio/domain"
)

// ImageSummary describes the selected image without its payload
type ImageSummary struct {
	Filename string             `json:"filename"`
	MIMEType string             `json:"mime_type"`
	Size     int                `json:"size"`
	Origin   domain.ImageOrigin `json:"origin"`
	Preview  string             `json:"preview,omitempty"`
}

func summarize(img *domain.Image) ImageSummary {
	return ImageSummary{
		Filename: img.Filename,
		MIMEType: img.MIMEType,
		Size:     img.Size(),
		Origin:   img.Origin,
	}
}

// SelectImage validates and stores a picked, dropped or sample image.
// An invalid selection leaves the current one in place.
func (c *Controller) SelectImage(src domain.ImageSource) (ImageSummary, error) {
	img, err := domain.NewImage(src)
	if err != nil {
		c.logger.Warn("Rejected image selection",
			slog.String("origin", string(src.Origin)),
			slog.String("filename", src.Filename),
			slog.String("declared_type", src.DeclaredType),
			slog.Any("error", err),
		)
		return ImageSummary{}, err
	}

	c.mu.Lock()
	c.image = img
	c.mu.Unlock()

	c.logger.Info("Image selected",
		slog.String("origin", string(img.Origin)),
		slog.String("filename", img.Filename),
		slog.String("mime_type", img.MIMEType),
		slog.Int("size", img.Size()),
	)

	return summarize(img), nil
}

// SelectSampleImage loads the bundled sample image
func (c *Controller) SelectSampleImage() (ImageSummary, error) {
	if c.sampleImagePath == "" {
		return ImageSummary{}, domain.ErrNoSampleImage
	}

	data, err := os.ReadFile(c.sampleImagePath)
	if err != nil {
		return ImageSummary{}, fmt.Errorf("failed to load sample image: %w", err)
	}

	return c.SelectImage(domain.ImageSource{
		Origin:       domain.OriginSample,
		Filename:     domain.SampleImageFilename,
		DeclaredType: domain.SampleImageMediaType,
		Data:         data,
	})
}

// RemoveImage clears the selection
func (c *Controller) RemoveImage() {
	c.mu.Lock()
	c.image = nil
	c.mu.Unlock()
}

// Image returns the selected image summary including its data URL preview
func (c *Controller) Image() (ImageSummary, bool) {
	c.mu.Lock()
	img := c.image
	c.mu.Unlock()

	if img == nil {
		return ImageSummary{}, false
	}

	summary := summarize(img)
	summary.Preview = img.Preview()
	return summary, true
}

// Snapshot is the full client view: generation state plus selection
type Snapshot struct {
	domain.State
	Image *ImageSummary `json:"image,omitempty"`
}

// Snapshot returns a consistent copy of state and selection
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{State: c.state}
	if c.image != nil {
		summary := summarize(c.image)
		snap.Image = &summary
	}
	return snap
}
