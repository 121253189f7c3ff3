package dto

import (
	"time"

	"github.com/cuongbtq/pixeldojo-studio/internal/studio/controller"
	"github.com/cuongbtq/pixeldojo-studio/internal/studio/domain"
)

// CreateGenerationRequest is the body of POST /api/v1/generations.
// Prompt and duration are validated by the studio so that the error
// names the violated rule.
type CreateGenerationRequest struct {
	Prompt   string `json:"prompt"`
	Duration *int   `json:"duration"`
	FastMode bool   `json:"fast_mode"`
}

type GenerationDTO struct {
	Status        string `json:"status"`
	JobID         string `json:"job_id,omitempty"`
	Progress      int    `json:"progress"`
	Message       string `json:"message"`
	ResultURL     string `json:"result_url,omitempty"`
	VideoFilename string `json:"video_filename,omitempty"`
	UpdatedAt     string `json:"updated_at"`
}

type ImageDTO struct {
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type"`
	Size     int    `json:"size"`
	Origin   string `json:"origin"`
	Preview  string `json:"preview,omitempty"`
}

type SnapshotResponse struct {
	Generation GenerationDTO `json:"generation"`
	Image      *ImageDTO     `json:"image,omitempty"`
}

type ErrorResponse struct {
	Error      string         `json:"error"`
	Generation *GenerationDTO `json:"generation,omitempty"`
}

func ToGenerationDTO(s domain.State) GenerationDTO {
	out := GenerationDTO{
		Status:    string(s.Status),
		JobID:     s.JobID,
		Progress:  s.Progress,
		Message:   s.Message,
		ResultURL: s.ResultURL,
		UpdatedAt: s.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if s.Status == domain.StatusCompleted {
		out.VideoFilename = domain.VideoFilename(s.JobID)
	}
	return out
}

func ToImageDTO(img controller.ImageSummary) ImageDTO {
	return ImageDTO{
		Filename: img.Filename,
		MIMEType: img.MIMEType,
		Size:     img.Size,
		Origin:   string(img.Origin),
		Preview:  img.Preview,
	}
}

func ToSnapshotResponse(snap controller.Snapshot) SnapshotResponse {
	resp := SnapshotResponse{Generation: ToGenerationDTO(snap.State)}
	if snap.Image != nil {
		img := ToImageDTO(*snap.Image)
		resp.Image = &img
	}
	return resp
}
