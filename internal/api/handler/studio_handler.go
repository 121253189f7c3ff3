package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/pixeldojo-studio/internal/api/dto"
	"github.com/cuongbtq/pixeldojo-studio/internal/studio/controller"
	"github.com/cuongbtq/pixeldojo-studio/internal/studio/domain"
)

const imageField = "image"

// SelectImage handles PUT /api/v1/image
// Stores the uploaded image; ?source=drop requires an image/* part type
func (h *StudioHandler) SelectImage(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		if c.Request.ContentLength > h.maxUploadBytes {
			h.respondTooLarge(c)
			return
		}
		// Bodies without a declared length are cut off while parsing
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	header, err := c.FormFile(imageField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondTooLarge(c)
			return
		}

		h.logger.Warn("Invalid image upload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "multipart field \"image\" is required"})
		return
	}

	file, err := header.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded image", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to read image"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read uploaded image", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to read image"})
		return
	}

	origin := domain.OriginPicker
	if c.Query("source") == string(domain.OriginDrop) {
		origin = domain.OriginDrop
	}

	summary, err := h.studio.SelectImage(domain.ImageSource{
		Origin:       origin,
		Filename:     header.Filename,
		DeclaredType: header.Header.Get("Content-Type"),
		Data:         data,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToImageDTO(summary))
}

// SelectSampleImage handles POST /api/v1/image/sample
func (h *StudioHandler) SelectSampleImage(c *gin.Context) {
	summary, err := h.studio.SelectSampleImage()
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToImageDTO(summary))
}

// GetImage handles GET /api/v1/image
// Returns the selection with its data URL preview
func (h *StudioHandler) GetImage(c *gin.Context) {
	summary, ok := h.studio.Image()
	if !ok {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: domain.ErrImageRequired.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.ToImageDTO(summary))
}

// RemoveImage handles DELETE /api/v1/image
func (h *StudioHandler) RemoveImage(c *gin.Context) {
	h.studio.RemoveImage()
	c.Status(http.StatusNoContent)
}

// CreateGeneration handles POST /api/v1/generations
// Submits the selected image and starts polling the backend job
func (h *StudioHandler) CreateGeneration(c *gin.Context) {
	var req dto.CreateGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	duration := h.defaultDuration
	if req.Duration != nil {
		duration = *req.Duration
	}

	state, err := h.studio.Submit(c.Request.Context(), controller.SubmitInput{
		Prompt:   req.Prompt,
		Duration: duration,
		FastMode: req.FastMode,
	})
	if err != nil {
		h.respondStateError(c, err, state)
		return
	}

	c.JSON(http.StatusAccepted, dto.ToGenerationDTO(state))
}

// GetCurrentGeneration handles GET /api/v1/generations/current
func (h *StudioHandler) GetCurrentGeneration(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ToSnapshotResponse(h.studio.Snapshot()))
}

// ResetGeneration handles POST /api/v1/generations/current/reset
func (h *StudioHandler) ResetGeneration(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ToGenerationDTO(h.studio.Reset()))
}

// DownloadVideo handles GET /api/v1/generations/current/video
// Streams the finished video as an attachment
func (h *StudioHandler) DownloadVideo(c *gin.Context) {
	result, ok := h.studio.Result()
	if !ok {
		h.respondError(c, domain.ErrNoResult)
		return
	}

	c.Header("Content-Type", "video/mp4")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))

	n, err := h.studio.Download(c.Request.Context(), c.Writer)
	if err != nil {
		if !c.Writer.Written() {
			c.Writer.Header().Del("Content-Disposition")
			h.respondError(c, err)
			return
		}

		// Headers are gone; all that is left is to log and cut the stream
		h.logger.Error("Video stream interrupted",
			slog.String("job_id", result.JobID),
			slog.Int64("bytes", n),
			slog.String("error", err.Error()),
		)
		_ = c.Error(err)
		c.Abort()
	}
}

func (h *StudioHandler) respondTooLarge(c *gin.Context) {
	h.logger.Warn("Image upload too large", slog.Int64("max_upload_bytes", h.maxUploadBytes))
	c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{
		Error: fmt.Sprintf("image exceeds %d bytes", h.maxUploadBytes),
	})
}

func (h *StudioHandler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	}
	c.JSON(status, dto.ErrorResponse{Error: err.Error()})
}

func (h *StudioHandler) respondStateError(c *gin.Context, err error, state domain.State) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	}

	resp := dto.ErrorResponse{Error: err.Error()}
	if state.Status != "" {
		generation := dto.ToGenerationDTO(state)
		resp.Generation = &generation
	}
	c.JSON(status, resp)
}

func statusFor(err error) int {
	switch {
	case domain.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrJobInProgress), errors.Is(err, domain.ErrStaleEvent):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoResult), errors.Is(err, domain.ErrNoSampleImage):
		return http.StatusNotFound
	case errors.Is(err, controller.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
