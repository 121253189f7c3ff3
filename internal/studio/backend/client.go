// Package backend talks to the PixelDojo generation API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cuongbtq/pixeldojo-studio/internal/studio/domain"
)

const (
	// DefaultBaseURL is where the backend listens in local development
	DefaultBaseURL = "http://localhost:8001"

	defaultRequestTimeout  = 30 * time.Second
	defaultDownloadTimeout = 10 * time.Minute
	maxErrorBody           = 4 << 10

	tracerName = "github.com/cuongbtq/pixeldojo-studio/internal/studio/backend"
)

// Options configures the backend client
type Options struct {
	BaseURL         string
	RequestTimeout  time.Duration // applies to generate, status and health calls
	DownloadTimeout time.Duration // applies to video downloads
	HTTPClient      *http.Client
	Logger          *slog.Logger
}

// Client performs HTTP calls to the generation backend
type Client struct {
	baseURL         string
	requestTimeout  time.Duration
	downloadTimeout time.Duration
	httpClient      *http.Client
	logger          *slog.Logger
	tracer          trace.Tracer
}

// SubmitResponse is the body of a successful POST /generate
type SubmitResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// StatusResponse is the body of GET /status/{job_id}
type StatusResponse struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	Op     string
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.Code)
}

// NewClient constructs a client, filling in defaults for unset options
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("invalid backend base url %q", opts.BaseURL)
	}

	requestTimeout := opts.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	downloadTimeout := opts.DownloadTimeout
	if downloadTimeout <= 0 {
		downloadTimeout = defaultDownloadTimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		baseURL:         baseURL,
		requestTimeout:  requestTimeout,
		downloadTimeout: downloadTimeout,
		httpClient:      httpClient,
		logger:          logger,
		tracer:          otel.Tracer(tracerName),
	}, nil
}

// BaseURL returns the normalized backend address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// VideoURL returns the playable and downloadable location of a finished job
func (c *Client) VideoURL(jobID string) string {
	return c.baseURL + "/video/" + url.PathEscape(jobID)
}

// Submit starts a generation job with a multipart POST /generate
func (c *Client) Submit(ctx context.Context, req domain.GenerationRequest) (SubmitResponse, error) {
	ctx, span := c.tracer.Start(ctx, "backend.Submit", trace.WithAttributes(
		attribute.Int("generation.duration", req.Duration),
		attribute.Bool("generation.fast_mode", req.FastMode),
	))
	defer span.End()

	if req.Image == nil {
		return SubmitResponse{}, recordErr(span, domain.ErrImageRequired)
	}

	body, contentType, err := encodeGenerateForm(req)
	if err != nil {
		return SubmitResponse{}, recordErr(span, fmt.Errorf("failed to encode generate form: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", body)
	if err != nil {
		return SubmitResponse{}, recordErr(span, fmt.Errorf("failed to build generate request: %w", err))
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	var out SubmitResponse
	if err := c.doJSON(httpReq, "generate", &out); err != nil {
		return SubmitResponse{}, recordErr(span, err)
	}
	if strings.TrimSpace(out.JobID) == "" {
		return SubmitResponse{}, recordErr(span, errors.New("generate: response has no job_id"))
	}

	span.SetAttributes(attribute.String("generation.job_id", out.JobID))
	c.logger.Debug("Generation submitted",
		slog.String("job_id", out.JobID),
		slog.Int("image_bytes", req.Image.Size()),
		slog.Int("duration", req.Duration),
		slog.Bool("fast_mode", req.FastMode),
	)

	return out, nil
}

// Status fetches the current state of a job
func (c *Client) Status(ctx context.Context, jobID string) (StatusResponse, error) {
	ctx, span := c.tracer.Start(ctx, "backend.Status", trace.WithAttributes(
		attribute.String("generation.job_id", jobID),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status/"+url.PathEscape(jobID), nil)
	if err != nil {
		return StatusResponse{}, recordErr(span, fmt.Errorf("failed to build status request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")

	var out StatusResponse
	if err := c.doJSON(httpReq, "status", &out); err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			err = fmt.Errorf("%w: %s", domain.ErrJobNotFound, jobID)
		}
		return StatusResponse{}, recordErr(span, err)
	}

	span.SetAttributes(
		attribute.String("generation.status", out.Status),
		attribute.Int("generation.progress", out.Progress),
	)

	return out, nil
}

// DownloadVideo streams GET /video/{job_id} into w and returns the number of bytes written
func (c *Client) DownloadVideo(ctx context.Context, jobID string, w io.Writer) (int64, error) {
	ctx, span := c.tracer.Start(ctx, "backend.DownloadVideo", trace.WithAttributes(
		attribute.String("generation.job_id", jobID),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.downloadTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.VideoURL(jobID), nil)
	if err != nil {
		return 0, recordErr(span, fmt.Errorf("failed to build video request: %w", err))
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, recordErr(span, fmt.Errorf("video: http request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, recordErr(span, fmt.Errorf("%w: %s", domain.ErrJobNotFound, jobID))
	}
	if resp.StatusCode >= 300 {
		return 0, recordErr(span, newStatusError("video", resp))
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, recordErr(span, fmt.Errorf("video: copy body: %w", err))
	}

	span.SetAttributes(attribute.Int64("video.bytes", n))
	return n, nil
}

// Health checks GET /health
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(httpReq, "health", &out); err != nil {
		return err
	}
	if out.Status != "healthy" {
		return fmt.Errorf("health: backend reports %q", out.Status)
	}
	return nil
}

func (c *Client) doJSON(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: http request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError(op, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func newStatusError(op string, resp *http.Response) *StatusError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	detail := strings.TrimSpace(string(raw))
	var decoded errorResponse
	if err := json.Unmarshal(raw, &decoded); err == nil && decoded.Detail != "" {
		detail = decoded.Detail
	}

	return &StatusError{Op: op, Code: resp.StatusCode, Detail: detail}
}

func encodeGenerateForm(req domain.GenerationRequest) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, escapeQuotes(req.Image.Filename)))
	header.Set("Content-Type", req.Image.MIMEType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.Image.Data); err != nil {
		return nil, "", err
	}

	fields := []struct{ name, value string }{
		{"prompt", req.Prompt},
		{"duration", strconv.Itoa(req.Duration)},
		{"fast_mode", strconv.FormatBool(req.FastMode)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}

	return body, mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func recordErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
