package domain

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	// MinDuration is the shortest clip the backend accepts, in seconds
	MinDuration = 5
	// MaxDuration is the longest clip the backend accepts, in seconds
	MaxDuration = 60
	// DefaultDuration is used when no duration is given
	DefaultDuration = 5
	// DefaultPrompt is the prompt suggested to new users
	DefaultPrompt = "show them dancing"
)

var validate = validator.New()

// GenerationRequest is everything the backend needs to start a job
type GenerationRequest struct {
	Image    *Image `validate:"required"`
	Prompt   string `validate:"required"`
	Duration int    `validate:"min=5,max=60"`
	FastMode bool
}

// Normalize trims the prompt and fills in the default duration
func (r GenerationRequest) Normalize() GenerationRequest {
	r.Prompt = strings.TrimSpace(r.Prompt)
	if r.Duration == 0 {
		r.Duration = DefaultDuration
	}
	return r
}

// Validate checks the normalized request and maps failures to domain errors
func (r GenerationRequest) Validate() error {
	r = r.Normalize()
	if r.Image != nil && len(r.Image.Data) == 0 {
		return ErrImageRequired
	}

	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	switch fieldErrs[0].Field() {
	case "Image":
		return ErrImageRequired
	case "Prompt":
		return ErrPromptRequired
	case "Duration":
		return ErrInvalidDuration
	default:
		return err
	}
}
